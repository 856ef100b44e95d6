package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"slotline/config"
	"slotline/models"
	"slotline/services/session"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

const TypeHoldExpire = "hold:expire"

// holdExpirePayload identifies the session whose hold reference must be
// purged once the server-side expiry passes.
type holdExpirePayload struct {
	SessionID string    `json:"sessionId"`
	HoldID    string    `json:"holdId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AsynqExpiryScheduler implements session.ExpiryScheduler by enqueuing a
// purge task processed at the hold's server expiry. The in-process
// countdown is the primary cleanup path; this covers sessions whose
// process went away mid-checkout.
type AsynqExpiryScheduler struct {
	Client *asynq.Client
}

func NewAsynqExpiryScheduler() *AsynqExpiryScheduler {
	return &AsynqExpiryScheduler{
		Client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisQueueDB,
		}),
	}
}

func (s *AsynqExpiryScheduler) ScheduleExpiry(ctx context.Context, sessionID string, h models.Hold) error {
	payload, err := json.Marshal(holdExpirePayload{
		SessionID: sessionID,
		HoldID:    h.ID,
		ExpiresAt: h.ExpiresAt,
	})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeHoldExpire, payload)
	_, err = s.Client.EnqueueContext(ctx, task, asynq.ProcessAt(h.ExpiresAt))
	return err
}

// InitExpiryWorker runs the async worker in background.
func InitExpiryWorker(store session.Store) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeHoldExpire, handleHoldExpireTask(store))

	go func() {
		log.Println("[ExpiryWorker] Starting async worker...")
		if err := srv.Run(mux); err != nil {
			log.Printf("[ExpiryWorker] Worker stopped: %v", err)
		}
	}()
}

// handleHoldExpireTask clears the persisted hold reference if the
// session still points at the expired hold. A session that moved on to
// a newer hold is left alone.
func handleHoldExpireTask(store session.Store) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload holdExpirePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return err
		}

		sess, err := store.Get(ctx, payload.SessionID)
		if err != nil {
			if err == session.ErrNotFound {
				return nil
			}
			return err
		}
		if sess.Hold == nil || sess.Hold.ID != payload.HoldID {
			return nil
		}

		sess.Hold = nil
		sess.Selection.SelectedSlot = nil
		ttl := time.Duration(config.AppConfig.SessionTTLMinutes) * time.Minute
		if err := store.Put(ctx, sess, ttl); err != nil {
			return err
		}
		log.Printf("[ExpiryWorker] Purged expired hold %s from session %s", payload.HoldID, payload.SessionID)
		return nil
	}
}

// MonitorRedisConnection pings the queue redis periodically and logs
// when it goes away, mirroring the session cache health check.
func MonitorRedisConnection(ctx context.Context) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := client.Ping(pingCtx).Err(); err != nil {
				log.Printf("[ExpiryWorker] Queue redis unreachable: %v", err)
			}
			cancel()
		}
	}
}
