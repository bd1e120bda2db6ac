package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deeppavlov/convai-router-bot/archive"
	"github.com/deeppavlov/convai-router-bot/botapi"
	"github.com/deeppavlov/convai-router-bot/internal/logutil"
	"github.com/deeppavlov/convai-router-bot/messenger"
	"github.com/deeppavlov/convai-router-bot/messenger/facebook"
	"github.com/deeppavlov/convai-router-bot/messenger/telegram"
	"github.com/deeppavlov/convai-router-bot/router"
	"github.com/deeppavlov/convai-router-bot/taggate"
)

const unavailableNotice = "No chatbots are available right now. Please try again later."

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the router daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			dir, err := stateDir()
			if err != nil {
				return err
			}

			cat, err := loadCatalog(dir)
			if err != nil {
				return err
			}
			if cat.Len() == 0 {
				logger.Warn("profile catalog is empty; every binding will fail until profiles are imported")
			}
			gate, err := taggate.NewSetGate(tagsPath(dir))
			if err != nil {
				return err
			}

			adapters := make(map[string]messenger.Messenger)
			tgToken := strings.TrimSpace(viper.GetString("telegram.token"))
			if tgToken != "" {
				adapters[messenger.PlatformTelegram] = telegram.NewClient(tgToken, viper.GetString("telegram.api_base"))
			}
			fbToken := strings.TrimSpace(viper.GetString("facebook.page_access_token"))
			if fbToken != "" {
				adapters[messenger.PlatformFacebook] = facebook.NewClient(fbToken, viper.GetString("facebook.api_base"))
			}
			if len(adapters) == 0 {
				return fmt.Errorf("no messenger configured (set telegram.token or facebook.page_access_token)")
			}

			var archiver router.Archiver
			if viper.GetBool("archive.enabled") {
				dsn := strings.TrimSpace(viper.GetString("archive.dsn"))
				if dsn == "" {
					dsn = filepath.Join(dir, "archive.sqlite")
				}
				store, err := archive.Open(dsn)
				if err != nil {
					return err
				}
				archiver = store
				logger.Info("archive enabled", "dsn", dsn)
			}

			r := router.New(cat, gate, adapters, archiver, logger, router.Config{
				StateDir:   dir,
				SessionCap: viper.GetInt("router.session_cap"),
				Inactivity: viper.GetDuration("router.inactivity_timeout"),
			})
			if err := r.Load(); err != nil {
				return err
			}
			if err := registerStoredInstances(r, dir, logger); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go r.RunSweeper(ctx, viper.GetDuration("router.sweep_interval"))

			mux := http.NewServeMux()
			botapi.NewServer(r, logger).Register(mux)
			mux.HandleFunc("/webhook/telegram", telegramWebhookHandler(r, logger))
			mux.HandleFunc("/webhook/facebook", facebookWebhookHandler(r, logger,
				strings.TrimSpace(viper.GetString("facebook.webhook_secret"))))

			addr := strings.TrimSpace(viper.GetString("server.bind")) + ":" + strconv.Itoa(viper.GetInt("server.port"))
			srv := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			logger.Info("server_start", "addr", addr,
				"profiles", cat.Len(), "platforms", len(adapters))
			return srv.ListenAndServe()
		},
	}
	return cmd
}

// registerStoredInstances replays the administrative instance list. Tokens
// already present in the restored router state are skipped.
func registerStoredInstances(r *router.Router, dir string, logger *slog.Logger) error {
	stored, err := loadInstances(dir)
	if err != nil {
		return err
	}
	for _, reg := range stored {
		if _, err := r.InstanceByToken(reg.Token); err == nil {
			continue
		}
		if _, err := r.RegisterInstance(reg.ProfileID, reg.Token); err != nil {
			return fmt.Errorf("register instance for %s: %w", reg.ProfileID, err)
		}
		logger.Info("instance registered", "profile", reg.ProfileID)
	}
	return nil
}

func telegramWebhookHandler(r *router.Router, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
		if err != nil {
			http.Error(w, "read failed", http.StatusBadRequest)
			return
		}
		msg, ok, err := telegram.ParseWebhook(body)
		if err != nil {
			logger.Warn("telegram webhook rejected", "err", err)
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if ok {
			handleInbound(req.Context(), r, msg, logger)
		}
		w.WriteHeader(http.StatusOK)
	}
}

func facebookWebhookHandler(r *router.Router, logger *slog.Logger, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			// Subscription verification handshake.
			q := req.URL.Query()
			if q.Get("hub.mode") == "subscribe" && secret != "" && q.Get("hub.verify_token") == secret {
				_, _ = w.Write([]byte(q.Get("hub.challenge")))
				return
			}
			logger.Error("invalid facebook verification request", "mode", q.Get("hub.mode"))
			http.Error(w, "Error", http.StatusForbidden)
		case http.MethodPost:
			body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
			if err != nil {
				http.Error(w, "read failed", http.StatusBadRequest)
				return
			}
			msgs, err := facebook.ParseWebhook(body)
			if err != nil {
				logger.Warn("facebook webhook rejected", "err", err)
				http.Error(w, "invalid payload", http.StatusBadRequest)
				return
			}
			for _, msg := range msgs {
				handleInbound(req.Context(), r, msg, logger)
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// handleInbound routes one message and tells the end-user when no chatbot
// can take the conversation. Routing failures never fail the webhook: the
// platforms would retry the very same payload.
func handleInbound(ctx context.Context, r *router.Router, msg messenger.Inbound, logger *slog.Logger) {
	err := r.HandleInbound(ctx, msg)
	if err == nil {
		return
	}
	logger.Warn("inbound message not delivered",
		"platform", msg.Platform, "user", msg.UserID, "err", err)
	if errors.Is(err, router.ErrNoEligibleProfile) {
		r.NotifyUser(ctx, msg.Platform, msg.UserID, unavailableNotice)
	}
}
