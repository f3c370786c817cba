package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tazhate/classbot/config"
	"github.com/tazhate/classbot/internal/bot"
	"github.com/tazhate/classbot/internal/clients/caldav"
	"github.com/tazhate/classbot/internal/notify"
	"github.com/tazhate/classbot/internal/scheduler"
	"github.com/tazhate/classbot/internal/service"
	"github.com/tazhate/classbot/internal/storage"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	engine, err := cfg.Rules.Engine()
	if err != nil {
		log.Fatalf("Invalid reminder rules: %v", err)
	}

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}
	defer store.Close()

	// Local delivery over Telegram
	center := scheduler.New(cfg.Timezone, store)
	if err := center.Restore(); err != nil {
		log.Fatalf("Failed to restore reminders: %v", err)
	}

	ports := []notify.Port{center}
	if cfg.CalDAVEnabled() {
		client := caldav.NewClient(cfg.CalDAVURL, cfg.CalDAVUsername, cfg.CalDAVPassword)
		resolveCtx, resolveCancel := context.WithTimeout(context.Background(), 30*time.Second)
		path, err := client.ResolveCalendar(resolveCtx, cfg.CalDAVCalendar)
		resolveCancel()
		if err != nil {
			log.Printf("CalDAV mirror disabled: %v", err)
		} else {
			ports = append(ports, caldav.NewMirror(client, path, cfg.Timezone))
			log.Printf("Mirroring reminders to CalDAV calendar %s", path)
		}
	}

	reminders := notify.NewScheduler(notify.Multi(ports...), engine,
		notify.WithSettleDelay(cfg.RegisterDelay))

	hooks := service.NewHooks(engine, reminders, *cfg.Rules.CompleteCancels)
	subjectSvc := service.NewSubjectService(store, hooks, cfg.Timezone)
	taskSvc := service.NewTaskService(store, hooks)

	tgBot, err := bot.New(cfg, subjectSvc, taskSvc, center)
	if err != nil {
		log.Fatalf("Failed to init bot: %v", err)
	}
	center.SetSender(tgBot, cfg.OwnerTelegramID)

	if err := center.StartDigest(cfg.MorningTime, store); err != nil {
		log.Fatalf("Failed to schedule morning digest: %v", err)
	}

	if err := service.Resync(store, hooks); err != nil {
		log.Printf("Resync error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := center.Start(ctx); err != nil {
			log.Printf("Notification center error: %v", err)
		}
	}()

	go func() {
		if err := tgBot.Start(ctx); err != nil {
			log.Printf("Bot error: %v", err)
		}
	}()

	log.Println("ClassBot started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := reminders.Close(shutdownCtx); err != nil {
		log.Printf("Error flushing reminders: %v", err)
	}
	center.Stop()

	if err := tgBot.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping bot: %v", err)
	}

	log.Println("ClassBot stopped")
}
