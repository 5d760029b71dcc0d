package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/wszrw123/xiaohongshu-automation/internal/app"
	"github.com/wszrw123/xiaohongshu-automation/internal/config"
	"github.com/wszrw123/xiaohongshu-automation/internal/content"
	"github.com/wszrw123/xiaohongshu-automation/internal/types"
)

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load or create configuration
	cfg, err := config.Load()
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
			if err := cfg.Save(); err != nil {
				logger.Printf("warning: could not save default config: %v", err)
			} else {
				path, _ := config.ConfigPath()
				logger.Printf("created default config at: %s", path)
			}
		} else {
			logger.Printf("warning: could not load config: %v (using defaults)", err)
			cfg = config.Default()
		}
	}

	paths, err := app.DefaultPaths()
	if err != nil {
		logger.Fatalf("failed to resolve paths: %v", err)
	}
	if err := paths.Ensure(); err != nil {
		logger.Fatalf("failed to create directories: %v", err)
	}

	a, err := app.New(cfg, paths, logger)
	if err != nil {
		logger.Fatalf("failed to initialize: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "publish":
		runPublish(ctx, a, os.Args[2:], logger)
	case "schedule":
		if err := a.RunSchedule(ctx); err != nil {
			logger.Fatalf("scheduler failed: %v", err)
		}
	case "login":
		ok, err := a.Login(ctx)
		if err != nil {
			logger.Fatalf("login failed to start: %v", err)
		}
		if !ok {
			logger.Printf("login failed")
			os.Exit(1)
		}
		logger.Printf("login successful")
	default:
		printUsage()
		os.Exit(1)
	}
}

func runPublish(ctx context.Context, a *app.App, args []string, logger *log.Logger) {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	file := fs.String("file", "", "path to content JSON file")
	title := fs.String("title", "", "note title (when -file is not given)")
	body := fs.String("content", "", "note body")
	tags := fs.String("tags", "", "comma-separated tags")
	images := fs.String("images", "", "comma-separated image paths (defaults to the configured cover)")
	dryRun := fs.Bool("dry-run", false, "fill the composer but do not click publish")
	headless := fs.Bool("headless", false, "run the browser headless")
	fs.Parse(args)

	var rec types.ContentRecord
	switch {
	case *file != "":
		var err error
		rec, err = content.Load(*file)
		if err != nil {
			logger.Fatalf("failed to load content: %v", err)
		}
	case *title != "":
		rec = types.ContentRecord{
			Title: *title,
			Body:  *body,
			Tags:  splitList(*tags),
		}
	default:
		logger.Fatalf("specify a content source: -file <json> or -title <title> [-content <body>] [-tags a,b]")
	}

	var media []string
	if *images != "" {
		media = splitList(*images)
	}

	logger.Printf("preparing to publish: %s", rec.Title)
	res, err := a.Publish(ctx, rec, media, *dryRun, *headless)
	if err != nil {
		logger.Fatalf("publish run aborted: %v", err)
	}

	if !res.Success {
		logger.Printf("publish failed: %s", res.Status)
		os.Exit(1)
	}
	logger.Printf("publish finished: %s", res.Status)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printUsage() {
	fmt.Println("Usage: xhs-auto <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  publish    Publish one note (-file or -title/-content/-tags, -images, -dry-run, -headless)")
	fmt.Println("  schedule   Run the daily publish scheduler")
	fmt.Println("  login      Run QR login and persist the session")
}
