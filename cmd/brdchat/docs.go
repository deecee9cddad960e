package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"brdchat/internal/brd"
	"brdchat/internal/resolver"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <doc-id>",
	Short: "List the sections of a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		eng, store, err := setup(ctx)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer store.Close()

		doc, err := eng.LoadDocument(ctx, args[0])
		if err != nil {
			log.Fatalf("Failed to load document: %v", err)
		}
		fmt.Println(eng.ListSections(doc))
	},
}

var showCmd = &cobra.Command{
	Use:   "show <doc-id> <number|title>",
	Short: "Show one section of a document",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		eng, store, err := setup(ctx)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer store.Close()

		doc, err := eng.LoadDocument(ctx, args[0])
		if err != nil {
			log.Fatalf("Failed to load document: %v", err)
		}

		query := strings.Join(args[1:], " ")
		ref := resolver.Title(query)
		if n, err := strconv.Atoi(query); err == nil {
			ref = resolver.Number(n)
		}
		text, err := eng.ShowSection(doc, ref)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Println(text)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print the events of a chat session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		eng, store, err := setup(ctx)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer store.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		events, err := eng.History(ctx, args[0], limit)
		if err != nil {
			log.Fatalf("Failed to read history: %v", err)
		}
		if len(events) == 0 {
			fmt.Println("📭 No events for this session.")
			return
		}
		for _, ev := range events {
			fmt.Printf("%s %s %s\n\n", dimStyle.Render(ev.CreatedAt.Format("15:04:05")), roleTag(string(ev.Role)), ev.Text)
		}
	},
}

var importCmd = &cobra.Command{
	Use:   "import <doc-id> <file>",
	Short: "Store a document from a JSON structure or a plain-text rendering",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		_, store, err := setup(ctx)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer store.Close()

		data, err := os.ReadFile(args[1])
		if err != nil {
			log.Fatalf("Failed to read %s: %v", args[1], err)
		}

		if strings.EqualFold(filepath.Ext(args[1]), ".json") {
			doc, err := brd.Decode(data)
			if err != nil {
				log.Fatalf("Failed to parse document: %v", err)
			}
			if err := brd.Validate(doc); err != nil {
				log.Fatalf("Invalid document: %v", err)
			}
			if err := store.Save(ctx, args[0], doc); err != nil {
				log.Fatalf("Failed to save document: %v", err)
			}
			fmt.Printf("✅ Imported %d sections into %s.\n", len(doc.ContentSections()), args[0])
			return
		}

		if err := store.SaveText(ctx, args[0], string(data)); err != nil {
			log.Fatalf("Failed to save document text: %v", err)
		}
		fmt.Printf("✅ Imported text into %s. Structure will be rebuilt on first use.\n", args[0])
	},
}

var reconstructCmd = &cobra.Command{
	Use:   "reconstruct <doc-id>",
	Short: "Rebuild the structured document from its stored text",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		eng, store, err := setup(ctx)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer store.Close()

		text, err := store.LoadText(ctx, args[0])
		if err != nil {
			log.Fatalf("Failed to load document text: %v", err)
		}

		fmt.Println("🔧 Reconstructing document structure...")
		doc, err := eng.Reconstruct(ctx, text)
		if err != nil {
			log.Fatalf("Reconstruction failed: %v", err)
		}
		if err := store.Save(ctx, args[0], doc); err != nil {
			log.Fatalf("Failed to save document: %v", err)
		}
		fmt.Printf("✅ Rebuilt %d sections.\n\n%s\n", len(doc.ContentSections()), eng.ListSections(doc))
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of events to print")
}
