// Command swipe is a terminal client for the ArtSwipe API.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/artswipe/backend/pkg/swipeclient"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "ArtSwipe API base URL")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := swipeclient.NewClient(*apiURL, nil)
	v := &view{}
	ctrl := swipeclient.NewController(client, v.render)
	v.ctrl = ctrl

	ctrl.Start(ctx)
	ctrl.Wait()
	printHelp()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			ctrl.Wait()
			return
		case line, ok := <-lines:
			if !ok {
				ctrl.Wait()
				return
			}
			if !handle(ctx, client, ctrl, strings.TrimSpace(strings.ToLower(line))) {
				ctrl.Wait()
				return
			}
		}
	}
}

func handle(ctx context.Context, client *swipeclient.Client, ctrl *swipeclient.Controller, cmd string) bool {
	switch cmd {
	case "l", "right":
		swipe(ctx, ctrl, swipeclient.Right)
	case "d", "left":
		swipe(ctx, ctrl, swipeclient.Left)
	case "g":
		if !ctrl.Generate(ctx) {
			fmt.Println("Generation already in progress")
		}
	case "s":
		printStats(ctx, os.Stdout, client, ctrl)
	case "q", "quit", "exit":
		return false
	case "":
	default:
		printHelp()
	}
	return true
}

func swipe(ctx context.Context, ctrl *swipeclient.Controller, dir swipeclient.Direction) {
	img, ok := ctrl.Swipe(ctx, dir)
	if !ok {
		fmt.Println("Nothing to swipe, press g to generate")
		return
	}
	fmt.Printf("Swiped %s: %s\n", dir, img.Prompt)
}

func printStats(ctx context.Context, w io.Writer, client *swipeclient.Client, ctrl *swipeclient.Controller) {
	if count, err := client.Count(ctx); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
	} else {
		fmt.Fprintf(w, "Images: %d/%d (can generate: %t)\n", count.Count, count.Limit, count.CanGenerate)
	}

	stats := ctrl.Stats()
	if stats == nil {
		fmt.Fprintln(w, "Stats not loaded yet")
		return
	}
	fmt.Fprintf(w, "Liked: %d  Disliked: %d  Total: %d\n", stats.Liked, stats.Disliked, stats.Total)
	for _, img := range ctrl.Liked() {
		fmt.Fprintf(w, "  * %s\n    %s\n", img.Prompt, img.ImageURL)
	}
}

func printHelp() {
	fmt.Println("Commands: l/right like, d/left dislike, g generate, s stats, q quit")
}

// view prints the head of the queue whenever it or the session state changes
type view struct {
	ctrl *swipeclient.Controller

	mu        sync.Mutex
	lastHead  string
	lastState swipeclient.State
	lastErr   error
}

func (v *view) render() {
	if v.ctrl == nil {
		return
	}
	state := v.ctrl.State()
	head, hasHead := v.ctrl.Head()
	err := v.ctrl.LastError()

	v.mu.Lock()
	defer v.mu.Unlock()

	if err != nil && err != v.lastErr {
		fmt.Printf("Error: %v\n", err)
	}
	v.lastErr = err

	if hasHead && head.ID != v.lastHead {
		fmt.Printf("\n%s\n%s\n", head.Prompt, head.ImageURL)
	}
	if !hasHead && state != v.lastState {
		switch state {
		case swipeclient.StateLoading:
			fmt.Println("Loading...")
		case swipeclient.StateEmptyAwaitingGeneration:
			fmt.Println("Generating new images...")
		case swipeclient.StateEmptyNoImages:
			fmt.Println("No images yet, press g to generate")
		}
	}
	v.lastHead = head.ID
	v.lastState = state
}
