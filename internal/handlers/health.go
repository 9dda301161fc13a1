package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jeremyjsx/inkwell/internal/storage"
)

// HealthDeps lists the backends to probe. Nil entries are reported as
// skipped.
type HealthDeps struct {
	DB       *sql.DB
	Mongo    *mongo.Client
	Storage  storage.Storage
	Redis    *redis.Client
	RabbitMQ interface{ Healthy() bool }
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health reports unhealthy when a backend needed to serve reads or writes is
// down, and degraded when only the cache or event bus is.
func Health(deps *HealthDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		status := "healthy"
		record := func(name string, err error, critical bool) {
			if err == nil {
				checks[name] = "ok"
				return
			}
			checks[name] = "unhealthy"
			if critical {
				status = "unhealthy"
			} else if status == "healthy" {
				status = "degraded"
			}
		}

		switch {
		case deps.DB != nil:
			record("db", deps.DB.PingContext(ctx), true)
		case deps.Mongo != nil:
			record("db", deps.Mongo.Ping(ctx, readpref.Primary()), true)
		default:
			checks["db"] = "skipped"
		}

		if deps.Storage != nil {
			_, err := deps.Storage.Exists(ctx, "__health__")
			record("storage", err, true)
		} else {
			checks["storage"] = "skipped"
		}

		if deps.Redis != nil {
			record("redis", deps.Redis.Ping(ctx).Err(), false)
		} else {
			checks["redis"] = "skipped"
		}

		if deps.RabbitMQ != nil {
			var err error
			if !deps.RabbitMQ.Healthy() {
				err = errConnectionClosed
			}
			record("rabbitmq", err, false)
		} else {
			checks["rabbitmq"] = "skipped"
		}

		code := http.StatusOK
		if status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, healthResponse{Status: status, Checks: checks})
	}
}
