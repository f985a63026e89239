package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/technosupport/ts-pos/internal/api"
	"github.com/technosupport/ts-pos/internal/audit"
	"github.com/technosupport/ts-pos/internal/config"
	"github.com/technosupport/ts-pos/internal/license"
	"github.com/technosupport/ts-pos/internal/metrics"
	"github.com/technosupport/ts-pos/internal/platform/hwid"
	"github.com/technosupport/ts-pos/internal/platform/paths"
	"github.com/technosupport/ts-pos/internal/secstore"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: <data root>/config.yaml)")
	flag.Parse()

	cfgPath, err := paths.ResolveConfigPath(*configPath)
	if err != nil {
		log.Fatalf("resolve config path: %v", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// 1. Data directory
	root := cfg.DataDir
	if root == "" {
		root, err = paths.EnsureDirs()
		if err != nil {
			log.Fatalf("platform init: %v", err)
		}
	} else if err := os.MkdirAll(filepath.Join(root, "store"), 0o700); err != nil {
		log.Fatalf("platform init: %v", err)
	}

	// 2. Secure store. A missing protector is survivable at startup: loads
	// report nothing stored, and any save fails loudly.
	protector, err := secstore.NewProtector()
	if err != nil {
		log.Printf("WARNING: platform data protection unavailable (%v); license import will fail until resolved", err)
	}
	store := secstore.New(filepath.Join(root, "store"), protector)

	// 3. Audit trail. 90 days is enough history for support escalations.
	trail := audit.Open(filepath.Join(root, "logs"))
	if err := os.MkdirAll(filepath.Join(root, "logs"), 0o700); err != nil {
		log.Fatalf("platform init: %v", err)
	}
	if removed, perr := trail.Prune(90 * 24 * time.Hour); perr != nil {
		log.Printf("WARNING: audit prune failed: %v", perr)
	} else if removed > 0 {
		log.Printf("audit: pruned %d expired events", removed)
	}

	// 4. Licensing core
	collector := metrics.NewCollector()
	fingerprinter := &license.FingerprintGenerator{Probes: hwid.New(), Metrics: collector}

	pub, err := license.EmbeddedPublicKey()
	if err != nil {
		log.Fatalf("trust anchor: %v", err)
	}
	engine := license.NewEngine(license.Config{
		PublicKey:     pub,
		Store:         store,
		Fingerprinter: fingerprinter,
		Metrics:       collector,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 5. Startup check, watcher, periodic recheck
	if st, verr := engine.ValidateCachedLicense(ctx); verr != nil {
		log.Printf("startup validation error: %v", verr)
	} else if st.OK {
		log.Printf("license valid: type=%s expires=%s", st.Payload.LicenseType, st.Payload.ExpiryDate)
	} else {
		log.Printf("license not valid: reason=%s", st.Reason)
	}

	hub := api.NewHub()
	onResult := func(st license.Status) {
		hub.Broadcast(st)
		result := "ok"
		if !st.OK {
			result = string(st.Reason)
		}
		if aerr := trail.Record(audit.Event{Action: audit.ActionValidate, Result: result, Details: st.Details}); aerr != nil {
			log.Printf("audit record failed: %v", aerr)
		}
	}
	engine.StartWatcher(ctx, onResult)
	sched := license.NewScheduler(engine, cfg.RecheckInterval, onResult)
	sched.OnAlert(func(kind string, daysLeft int, expiry string) {
		evt := audit.Event{
			Action:  audit.ActionAlert,
			Result:  kind,
			Details: map[string]string{"days_left": strconv.Itoa(daysLeft), "expiry_date": expiry},
		}
		if aerr := trail.Record(evt); aerr != nil {
			log.Printf("audit record failed: %v", aerr)
		}
	})
	sched.Start(ctx)

	// 6. Local API for the UI shell
	handler := (&api.LicenseHandler{
		Engine:        engine,
		Store:         store,
		Fingerprinter: fingerprinter,
		Hub:           hub,
		Audit:         trail,
	}).Router(collector.Handler())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("ts-pos licensing daemon listening on %s (data root %s)", cfg.ListenAddr, root)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("http server: %v", err)
	}
}
