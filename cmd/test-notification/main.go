package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/destiin/travel-booking/internal/config"
	"github.com/destiin/travel-booking/internal/container"
)

// Isolated check of the notification channels used by the booking flows.
// Sends one email through the notification service and, when Lark is
// configured, one chat message to the given open_id.

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	to := flag.String("to", "", "comma separated email recipients")
	openID := flag.String("open-id", "", "Lark open_id (ou_...) to message")
	flag.Parse()

	fmt.Println("=== Booking Notification Test ===")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	failed := false

	if *to != "" {
		fmt.Println("\n[Step 1] Sending test email...")
		recipients := strings.Split(*to, ",")
		gateways := container.ProvideGateways(cfg, logger)
		err := gateways.Email.SendEmail(ctx, recipients,
			"Booking Notification Test",
			"<p>This is a test message from the travel booking service.</p>")
		if err != nil {
			fmt.Printf("✗ Failed to send email: %v\n", err)
			failed = true
		} else {
			fmt.Printf("✓ Email sent to %s\n", strings.Join(recipients, ", "))
		}
	} else {
		fmt.Println("\n[Step 1] Skipped: no -to recipients given")
	}

	if *openID != "" {
		fmt.Println("\n[Step 2] Sending Lark text message...")
		if cfg.Lark.AppID == "" {
			fmt.Println("✗ lark.app_id is not configured")
			failed = true
		} else {
			messenger := container.ProvideMessenger(cfg, logger)
			if err := messenger.SendText(ctx, *openID, "Test message from the travel booking service"); err != nil {
				fmt.Printf("✗ Failed to send chat message: %v\n", err)
				failed = true
			} else {
				fmt.Printf("✓ Chat message sent to %s\n", *openID)
			}
		}
	} else {
		fmt.Println("\n[Step 2] Skipped: no -open-id given")
	}

	fmt.Println("\n=== Test Complete ===")
	if failed {
		os.Exit(1)
	}
}
