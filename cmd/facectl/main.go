// Package main is an interactive shell that drives the face-authentication
// flow end to end against the smart-home backend: enrolling identities,
// authenticating with a capture, and operating the gated door.
package main

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/NhanHoThanh/smart-home-faceauth/internal/capture"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/devices"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/faceid"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/logger"
	"github.com/NhanHoThanh/smart-home-faceauth/internal/service"
	"go.uber.org/zap"
)

var (
	version   string
	buildDate string
)

// repl runs the interactive shell loop, accepting commands to manage
// identities and the authentication session.
func repl(svc *service.Service) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("facectl> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)

		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, list, enroll <name> <image.jpg>, auth <id> <image.jpg>, status, unlock, lock, remove <id>, ack, reset, exit")
		case "list":
			identities, err := svc.Identities(ctx)
			if err != nil {
				fmt.Println("list failed:", err)
				break
			}
			if len(identities) == 0 {
				fmt.Println("No identities enrolled")
				break
			}
			for _, id := range identities {
				last := "never"
				if !id.LastAuthenticatedAt.IsZero() {
					last = id.LastAuthenticatedAt.Format(time.RFC3339)
				}
				fmt.Printf("%s  %s  enrolled %s  last auth %s\n",
					id.ID, id.Name, id.EnrolledAt.Format(time.RFC3339), last)
			}
		case "enroll":
			if len(args) < 3 {
				fmt.Println("Usage: enroll <name> <image.jpg>")
				break
			}
			image, err := capture.FileProvider{Path: args[2]}.Capture(ctx)
			if err != nil {
				fmt.Println("capture failed:", err)
				break
			}
			result, err := svc.Enroll(ctx, args[1], image)
			if err != nil {
				fmt.Println("enroll failed:", err)
				break
			}
			if result.Success {
				fmt.Println("Enrolled as", result.IdentityID)
			} else {
				fmt.Println("Enrollment rejected:", result.Message)
			}
		case "auth":
			if len(args) < 3 {
				fmt.Println("Usage: auth <id> <image.jpg>")
				break
			}
			if err := svc.StartAttempt(ctx, args[1]); err != nil {
				fmt.Println("cannot start attempt:", err)
				break
			}
			image, err := capture.FileProvider{Path: args[2]}.Capture(ctx)
			if err != nil {
				fmt.Println("capture failed:", err)
				svc.ResetAttempt()
				break
			}
			if err := svc.SubmitCapture(ctx, image); err != nil {
				fmt.Println("verification failed:", err)
			}
			printStatus(svc)
		case "status":
			printStatus(svc)
		case "unlock":
			if err := svc.Unlock(ctx); err != nil {
				fmt.Println("unlock failed:", err)
			} else {
				fmt.Println("Door unlocked")
			}
		case "lock":
			if err := svc.Lock(ctx); err != nil {
				fmt.Println("lock failed:", err)
			} else {
				fmt.Println("Door locked")
			}
		case "remove":
			if len(args) < 2 {
				fmt.Println("Usage: remove <id>")
				break
			}
			if err := svc.Remove(ctx, args[1]); err != nil {
				fmt.Println("remove failed:", err)
			} else {
				fmt.Println("Identity removed")
			}
		case "ack":
			svc.Acknowledge()
			printStatus(svc)
		case "reset":
			svc.ResetAttempt()
			fmt.Println("Attempt reset")
		case "exit":
			cancel()
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}

		cancel()
	}
}

// printStatus prints the engine state and, when granted, the session.
func printStatus(svc *service.Service) {
	state := svc.State()
	fmt.Println("State:", state)

	switch state {
	case faceid.StateGranted:
		session := svc.Session()
		b, _ := json.MarshalIndent(session, "", "  ")
		fmt.Println(string(b))
	case faceid.StateDenied:
		reason, detail := svc.Denial()
		fmt.Printf("Denied (%s): %s\n", reason, detail)
	}
}

// main parses command-line flags and starts the shell.
func main() {
	var (
		backendURL string
		doorDevice string
		timeout    time.Duration
	)
	flag.StringVar(&backendURL, "b", "http://localhost:8080", "backend base URL")
	flag.StringVar(&doorDevice, "door", "", "door device id to gate")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "backend call timeout")
	flag.Parse()

	fmt.Printf("facectl version %s (built %s)\n", cmp.Or(version, "N/A"), cmp.Or(buildDate, "N/A"))

	log := logger.New()
	if err := log.Init("warn"); err != nil {
		fmt.Println("failed to init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()

	registry := faceid.NewRegistry(backendURL, timeout, log.Log)
	doors := devices.NewClient(backendURL, timeout, log.Log)

	engine := faceid.NewEngine(registry, nil, log.Log)
	gate := faceid.NewGate(engine, doors, doorDevice, log.Log)
	svc := service.NewFaceAuthService(registry, engine, gate, nil, nil, log.Log)

	log.Log.Debug("facectl configured", zap.String("backend", backendURL))

	repl(svc)
}
