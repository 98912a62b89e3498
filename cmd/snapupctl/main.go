package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ESmeer90/snapup/internal/profile"
	"github.com/ESmeer90/snapup/internal/store"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	db, err := store.Open(profile.DBPath(profileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot open store for profile %q: %v\n", profileName, err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: migrate: %v\n", err)
		os.Exit(1)
	}

	switch args[0] {
	case "status":
		cmdStatus(db, profileName, *jsonFlag)
	case "queue":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: snapupctl queue <list|clear>")
			os.Exit(1)
		}
		cmdQueue(db, args[1], *jsonFlag)
	case "listings":
		cmdListings(db, *jsonFlag)
	case "messages":
		if len(args) < 2 || args[1] != "export" {
			fmt.Fprintln(os.Stderr, "usage: snapupctl messages export")
			os.Exit(1)
		}
		cmdMessagesExport(db)
	case "flag":
		cmdFlag(db, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: snapupctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status             Show offline store counts")
	fmt.Fprintln(os.Stderr, "  queue list         List queued writes in replay order")
	fmt.Fprintln(os.Stderr, "  queue clear        Drop all queued writes")
	fmt.Fprintln(os.Stderr, "  listings           List cached listing snapshots")
	fmt.Fprintln(os.Stderr, "  messages export    Dump the full message mirror as JSON")
	fmt.Fprintln(os.Stderr, "  flag get <key>     Read a session flag")
	fmt.Fprintln(os.Stderr, "  flag set <key> <value>  Write a session flag")
}

func cmdStatus(db *store.DB, profileName string, jsonOut bool) {
	messages, err := db.MessageCount()
	if err != nil {
		fail(err)
	}
	queued, err := db.QueuedCount()
	if err != nil {
		fail(err)
	}
	listings, err := db.ListingCount()
	if err != nil {
		fail(err)
	}

	if jsonOut {
		outputJSON(map[string]any{
			"profile":  profileName,
			"messages": messages,
			"queued":   queued,
			"listings": listings,
		})
		return
	}
	fmt.Printf("Profile:   %s\n", profileName)
	fmt.Printf("Messages:  %d (retained indefinitely)\n", messages)
	fmt.Printf("Queued:    %d\n", queued)
	fmt.Printf("Listings:  %d\n", listings)
}

func cmdQueue(db *store.DB, subcmd string, jsonOut bool) {
	switch subcmd {
	case "list":
		entries, err := db.QueuedWrites()
		if err != nil {
			fail(err)
		}
		if jsonOut {
			outputJSON(entries)
			return
		}
		if len(entries) == 0 {
			fmt.Println("Queue is empty.")
			return
		}
		for _, e := range entries {
			created := time.UnixMilli(e.CreatedAt).Format(time.RFC3339)
			fmt.Printf("%6d  %-7s %-40s %-8s retries=%d  %s\n", e.ID, e.Method, e.Endpoint, e.Status, e.RetryCount, created)
		}
	case "clear":
		dropped, err := db.ClearQueue()
		if err != nil {
			fail(err)
		}
		fmt.Printf("Dropped %d queued writes.\n", dropped)
	default:
		fmt.Fprintf(os.Stderr, "unknown queue subcommand: %s\n", subcmd)
		os.Exit(1)
	}
}

func cmdListings(db *store.DB, jsonOut bool) {
	listings, err := db.CachedListings()
	if err != nil {
		fail(err)
	}
	if jsonOut {
		outputJSON(listings)
		return
	}
	if len(listings) == 0 {
		fmt.Println("No cached listings.")
		return
	}
	for _, l := range listings {
		viewed := time.UnixMilli(l.ViewedAt).Format(time.RFC3339)
		fmt.Printf("%-24s %-30s %8.2f %s  viewed %s\n", l.ID, l.Title, l.Price, l.Currency, viewed)
	}
}

func cmdMessagesExport(db *store.DB) {
	msgs, err := db.AllMessages()
	if err != nil {
		fail(err)
	}
	outputJSON(msgs)
}

func cmdFlag(db *store.DB, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: snapupctl flag <get|set> <key> [value]")
		os.Exit(1)
	}
	switch args[0] {
	case "get":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: snapupctl flag get <key>")
			os.Exit(1)
		}
		flagValue, err := db.SessionValue(args[1])
		if err != nil {
			fail(err)
		}
		if flagValue == nil {
			fmt.Println("(unset)")
			return
		}
		fmt.Println(flagValue.Value)
	case "set":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: snapupctl flag set <key> <value>")
			os.Exit(1)
		}
		if err := db.SetSessionValue(args[1], args[2]); err != nil {
			fail(err)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown flag subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
