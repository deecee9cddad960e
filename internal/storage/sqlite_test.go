package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"brdchat/internal/brd"
	"brdchat/internal/brderr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() *brd.Document {
	return &brd.Document{Sections: []brd.Section{
		{Title: "Document Overview", Content: []brd.Block{brd.Paragraph("Overview")}},
		{Title: "Purpose", Content: []brd.Block{brd.Paragraph("Contact: Sarah")}},
	}}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	sqliteStore, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	fileStore, err := NewFileStore(filepath.Join(dir, "files"))
	require.NoError(t, err)

	return map[string]Store{"sqlite": sqliteStore, "file": fileStore}
}

func TestStore_LoadMissingDocument(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(context.Background(), "nope")
			require.Error(t, err)
			assert.True(t, brderr.Is(err, brderr.DocumentStructureMissing))

			_, err = store.LoadText(context.Background(), "nope")
			assert.True(t, brderr.Is(err, brderr.DocumentStructureMissing))
		})
	}
}

func TestStore_SaveWritesStructureAndText(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			doc := testDocument()
			require.NoError(t, store.Save(ctx, "doc-1", doc))

			loaded, err := store.Load(ctx, "doc-1")
			require.NoError(t, err)
			assert.Equal(t, doc.Sections, loaded.Sections)

			text, err := store.LoadText(ctx, "doc-1")
			require.NoError(t, err)
			assert.Equal(t, brd.RenderText(doc), text)

			// Overwrite keeps both forms in step.
			doc.Sections[1].Content[0] = brd.Paragraph("Contact: Aman")
			require.NoError(t, store.Save(ctx, "doc-1", doc))
			text, err = store.LoadText(ctx, "doc-1")
			require.NoError(t, err)
			assert.Contains(t, text, "Contact: Aman")
			assert.NotContains(t, text, "Contact: Sarah")
		})
	}
}

func TestStore_SaveRejectsInvalidDocument(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, "doc-1", testDocument()))

			bad := &brd.Document{Sections: []brd.Section{{Title: ""}}}
			require.Error(t, store.Save(ctx, "doc-1", bad))

			loaded, err := store.Load(ctx, "doc-1")
			require.NoError(t, err)
			assert.Equal(t, "Purpose", loaded.Sections[1].Title)
		})
	}
}

func TestStore_SaveTextDropsStructure(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, "doc-1", testDocument()))
			require.NoError(t, store.SaveText(ctx, "doc-1", "1. Purpose\nraw"))

			_, err := store.Load(ctx, "doc-1")
			assert.True(t, brderr.Is(err, brderr.DocumentStructureMissing))

			text, err := store.LoadText(ctx, "doc-1")
			require.NoError(t, err)
			assert.Equal(t, "1. Purpose\nraw", text)
		})
	}
}

func TestStore_ConversationLog(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 1; i <= 5; i++ {
				role := RoleUser
				if i%2 == 0 {
					role = RoleAssistant
				}
				ev, err := store.Append(ctx, "s1", role, fmt.Sprintf("msg %d", i))
				require.NoError(t, err)
				assert.NotEmpty(t, ev.ID)
			}
			_, err := store.Append(ctx, "s2", RoleUser, "other session")
			require.NoError(t, err)

			all, err := store.List(ctx, "s1", 0)
			require.NoError(t, err)
			require.Len(t, all, 5)
			assert.Equal(t, "msg 1", all[0].Text)
			assert.Equal(t, "msg 5", all[4].Text)
			assert.Equal(t, RoleAssistant, all[1].Role)

			recent, err := store.List(ctx, "s1", 2)
			require.NoError(t, err)
			require.Len(t, recent, 2)
			assert.Equal(t, "msg 4", recent[0].Text)
			assert.Equal(t, "msg 5", recent[1].Text)

			none, err := store.List(ctx, "missing", 10)
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestStore_ListCapsAtPageSize(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < MaxPageSize+5; i++ {
				_, err := store.Append(ctx, "s1", RoleUser, fmt.Sprintf("m%d", i))
				require.NoError(t, err)
			}
			got, err := store.List(ctx, "s1", 1000)
			require.NoError(t, err)
			require.Len(t, got, MaxPageSize)
			assert.Equal(t, fmt.Sprintf("m%d", MaxPageSize+4), got[len(got)-1].Text)
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open("sqlite", filepath.Join(dir, "a.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open("file", filepath.Join(dir, "docs"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open("s3", "bucket")
	assert.Error(t, err)
}
