package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aleksaelezovic/tristore/internal/storage"
	"github.com/aleksaelezovic/tristore/pkg/store"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: tristore <command> [args]")
		fmt.Println("Commands:")
		fmt.Println("  demo                      - Run a demo with sample data")
		fmt.Println("  insert <s> <p> <o>        - Insert a single triple")
		fmt.Println("  query [s] [p] [o]         - Query by pattern (use _ for unbound)")
		fmt.Println("  count                     - Print the current triple count")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "demo":
		runDemo()
	case "insert":
		if len(os.Args) < 5 {
			fmt.Println("Usage: tristore insert <subject> <predicate> <object>")
			os.Exit(1)
		}
		runInsert(os.Args[2], os.Args[3], os.Args[4])
	case "query":
		var s, p, o string
		if len(os.Args) > 2 {
			s = os.Args[2]
		}
		if len(os.Args) > 3 {
			p = os.Args[3]
		}
		if len(os.Args) > 4 {
			o = os.Args[4]
		}
		runQuery(s, p, o)
	case "count":
		runCount()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

const dbPath = "./tristore_data"

func openStore() *store.Store {
	badgerStorage, err := storage.NewBadgerStorage(dbPath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	s, err := store.New(badgerStorage, "tristore")
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	return s
}

func runDemo() {
	fmt.Println("=== Tristore RDF Triple Store Demo ===")
	fmt.Println()
	fmt.Printf("Opening database at: %s\n", dbPath)

	s := openStore()
	defer s.Close()
	fmt.Println("Store initialized")
	fmt.Println()

	fmt.Println("Inserting sample data...")
	ctx := context.Background()

	triples := []store.Triple{
		{Subject: "http://example.org/alice", Predicate: "http://xmlns.com/foaf/0.1/knows", Object: "http://example.org/bob"},
		{Subject: "http://example.org/bob", Predicate: "http://xmlns.com/foaf/0.1/knows", Object: "http://example.org/carol"},
		{Subject: "http://example.org/carol", Predicate: "http://xmlns.com/foaf/0.1/knows", Object: "http://example.org/alice"},
		{Subject: "http://example.org/alice", Predicate: "http://xmlns.com/foaf/0.1/name", Object: "Alice"},
		{Subject: "http://example.org/bob", Predicate: "http://xmlns.com/foaf/0.1/name", Object: "Bob"},
		{Subject: "http://example.org/carol", Predicate: "http://xmlns.com/foaf/0.1/name", Object: "Carol"},
	}

	if err := s.InsertBatch(ctx, triples); err != nil {
		log.Fatalf("Failed to insert triples: %v", err)
	}
	for _, t := range triples {
		fmt.Printf("  + %s %s %s\n", t.Subject, t.Predicate, t.Object)
	}

	count, err := s.Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count triples: %v", err)
	}
	fmt.Printf("\nTotal triples stored: %d\n", count)

	fmt.Println()
	fmt.Println("=== Querying: who does alice know? ===")
	alice := "http://example.org/alice"
	knows := "http://xmlns.com/foaf/0.1/knows"
	printResults(ctx, s, store.Pattern{Subject: &alice, Predicate: &knows})

	fmt.Println("\n=== Demo Complete ===")
}

func runInsert(s, p, o string) {
	st := openStore()
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := st.Insert(ctx, store.Triple{Subject: s, Predicate: p, Object: o}); err != nil {
		log.Fatalf("Failed to insert triple: %v", err)
	}
	fmt.Printf("Inserted: %s %s %s\n", s, p, o)
}

func runQuery(s, p, o string) {
	st := openStore()
	defer st.Close()

	ctx := context.Background()
	pattern := store.Pattern{}
	if s != "" && s != "_" {
		pattern.Subject = &s
	}
	if p != "" && p != "_" {
		pattern.Predicate = &p
	}
	if o != "" && o != "_" {
		pattern.Object = &o
	}
	printResults(ctx, st, pattern)
}

func printResults(ctx context.Context, s *store.Store, pattern store.Pattern) {
	cur, err := s.Query(ctx, pattern)
	if err != nil {
		log.Fatalf("Failed to query: %v", err)
	}
	defer cur.Close()

	n := 0
	for cur.Next() {
		t, err := cur.Triple()
		if err != nil {
			log.Fatalf("Failed to decode result: %v", err)
		}
		fmt.Printf("  %s %s %s\n", t.Subject, t.Predicate, t.Object)
		n++
	}
	fmt.Printf("\nFound %d results\n", n)
}

func runCount() {
	s := openStore()
	defer s.Close()

	count, err := s.Count(context.Background())
	if err != nil {
		log.Fatalf("Failed to count triples: %v", err)
	}
	fmt.Printf("Total triples: %d\n", count)
}
