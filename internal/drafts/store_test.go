package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debemdeboas/draftdesk/internal/config"
	"github.com/debemdeboas/draftdesk/internal/model"
	"github.com/debemdeboas/draftdesk/internal/storage"
)

func newTestStore(t *testing.T, durable storage.Durable, slot storage.Slot, opts ...Option) *Store {
	t.Helper()
	clock := newStepClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	st := NewStore(model.KindBlog, durable, slot, opts...)
	t.Cleanup(st.Close)
	return st
}

func reload(t *testing.T, durable storage.Durable, slot storage.Slot) []model.Draft {
	t.Helper()
	st := newTestStore(t, durable, slot)
	got := st.Load(context.Background())
	require.NoError(t, st.Flush(context.Background()))
	return got
}

func TestUpsertResolution(t *testing.T) {
	t.Run("id match overwrites in place", func(t *testing.T) {
		st := newTestStore(t, storage.NewMemoryStore(), storage.NewMemorySlot())
		st.Upsert(blogDraft("A", "", "first"))
		st.Upsert(blogDraft("B", "", "second"))
		st.Upsert(blogDraft("A", "", "first again"))

		require.Equal(t, 2, st.Len())
		d, ok := st.Get("A")
		require.True(t, ok)
		assert.Equal(t, "first again", d.Title)
	})

	t.Run("slug match keeps the existing id", func(t *testing.T) {
		st := newTestStore(t, storage.NewMemoryStore(), storage.NewMemorySlot())
		st.Upsert(blogDraft("A", "my-post", "old"))

		stored := st.Upsert(blogDraft("B", "my-post", "new"))

		assert.Equal(t, model.DraftID("A"), stored.ID)
		list := st.List()
		require.Len(t, list, 1)
		assert.Equal(t, model.DraftID("A"), list[0].ID)
		assert.Equal(t, "my-post", list[0].Slug)
		assert.Equal(t, "new", list[0].Title)
	})

	t.Run("no match appends", func(t *testing.T) {
		st := newTestStore(t, storage.NewMemoryStore(), storage.NewMemorySlot())
		st.Upsert(blogDraft("A", "one", "one"))
		st.Upsert(blogDraft("B", "two", "two"))
		assert.Equal(t, 2, st.Len())
	})

	t.Run("empty id gets a fresh one", func(t *testing.T) {
		st := newTestStore(t, storage.NewMemoryStore(), storage.NewMemorySlot())
		stored := st.Upsert(blogDraft("", "", "untitled"))
		assert.NotEmpty(t, stored.ID)
	})

	t.Run("updatedAt is refreshed", func(t *testing.T) {
		st := newTestStore(t, storage.NewMemoryStore(), storage.NewMemorySlot())
		first := st.Upsert(blogDraft("A", "", "v1"))
		second := st.Upsert(blogDraft("A", "", "v2"))
		assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	})

	t.Run("returned draft is a copy", func(t *testing.T) {
		st := newTestStore(t, storage.NewMemoryStore(), storage.NewMemorySlot())
		d := blogDraft("A", "", "t")
		d.Blog.Tags = []string{"go"}
		stored := st.Upsert(d)
		stored.Blog.Tags[0] = "mutated"
		d.Blog.Tags[0] = "mutated"

		got, _ := st.Get("A")
		assert.Equal(t, []string{"go"}, got.Blog.Tags)
	})
}

func TestUpsertCapsCollection(t *testing.T) {
	st := newTestStore(t, storage.NewMemoryStore(), storage.NewMemorySlot())

	for i := 0; i < 25; i++ {
		st.Upsert(blogDraft(fmt.Sprintf("d%02d", i), "", fmt.Sprintf("draft %d", i)))
	}

	list := st.List()
	require.Len(t, list, DefaultMaxDrafts)
	for i, d := range list {
		assert.Equal(t, model.DraftID(fmt.Sprintf("d%02d", 24-i)), d.ID, "position %d", i)
	}
	for i := 0; i < 5; i++ {
		_, ok := st.Get(model.DraftID(fmt.Sprintf("d%02d", i)))
		assert.False(t, ok, "d%02d should have been evicted", i)
	}
}

func TestUpsertCapKeepsMostRecentRegardlessOfInsertionOrder(t *testing.T) {
	// Timestamps are handed out out of order so the oldest drafts are not the first inserted.
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	offsets := []int{7, 2, 9, 4, 0, 5, 1, 8, 3, 6}
	i := 0
	clock := func() time.Time {
		t := base.Add(time.Duration(offsets[i%len(offsets)]) * time.Minute)
		i++
		return t
	}

	st := NewStore(model.KindBlog, storage.NewMemoryStore(), storage.NewMemorySlot(),
		WithClock(clock), WithMaxDrafts(5))
	defer st.Close()

	for n := 0; n < len(offsets); n++ {
		st.Upsert(blogDraft(fmt.Sprintf("m%d", offsets[n]), "", "x"))
	}

	list := st.List()
	require.Len(t, list, 5)
	var ids []model.DraftID
	for _, d := range list {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []model.DraftID{"m9", "m8", "m7", "m6", "m5"}, ids)
}

func TestLoadCapsCollectionWrittenUnderLargerLimit(t *testing.T) {
	durable := storage.NewMemoryStore()
	slot := storage.NewMemorySlot()

	st := newTestStore(t, durable, slot)
	for i := 0; i < 8; i++ {
		st.Upsert(blogDraft(fmt.Sprintf("d%d", i), "", fmt.Sprintf("draft %d", i)))
	}
	require.NoError(t, st.Flush(context.Background()))

	capped := newTestStore(t, durable, slot, WithMaxDrafts(3))
	got := capped.Load(context.Background())
	require.Len(t, got, 3)
	assert.Equal(t, []model.DraftID{"d7", "d6", "d5"}, []model.DraftID{got[0].ID, got[1].ID, got[2].ID})
	require.NoError(t, capped.Flush(context.Background()))

	data, err := durable.Get(context.Background(), config.DraftsKey("blog"))
	require.NoError(t, err)
	var persisted []model.Draft
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Len(t, persisted, 3, "the trimmed collection is written back")
}

func TestReloadReturnsLatestValuePerID(t *testing.T) {
	durable := storage.NewMemoryStore()
	slot := storage.NewMemorySlot()

	st := newTestStore(t, durable, slot)
	for round := 0; round < 3; round++ {
		for _, id := range []string{"A", "B", "C"} {
			st.Upsert(blogDraft(id, "", fmt.Sprintf("%s-v%d", id, round)))
		}
	}
	require.NoError(t, st.Flush(context.Background()))

	got := reload(t, durable, slot)
	require.Len(t, got, 3)
	titles := map[model.DraftID]string{}
	for _, d := range got {
		titles[d.ID] = d.Title
	}
	assert.Equal(t, map[model.DraftID]string{"A": "A-v2", "B": "B-v2", "C": "C-v2"}, titles)
}

func TestRoundTripKeepsFileMetadataOnly(t *testing.T) {
	durable := storage.NewMemoryStore()
	slot := storage.NewMemorySlot()
	st := newTestStore(t, durable, slot)

	fields := model.BlogFields{
		Title:        "With files",
		Slug:         "with-files",
		Category:     "news",
		Excerpt:      "short",
		Content:      "<p>Body</p>",
		Tags:         []string{"a", "b"},
		CoverPhoto:   &model.Upload{Name: "cover.png", Type: "image/png", Size: 1024, Data: []byte{1, 2, 3}},
		InlineImages: []model.Upload{{Name: "inline.jpg", Type: "image/jpeg", Size: 2048, Data: []byte{4, 5}}},
	}
	snap := MakeBlogSnapshot(fields, "", nil, time.Now())
	require.NotNil(t, snap)
	st.Upsert(*snap)
	require.NoError(t, st.Flush(context.Background()))

	raw, err := durable.Get(context.Background(), config.DraftsKey("blog"))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"data"`)

	got := reload(t, durable, slot)
	require.Len(t, got, 1)
	d := got[0]
	assert.Equal(t, "With files", d.Title)
	assert.Equal(t, "with-files", d.Slug)
	assert.Equal(t, "news", d.Blog.Category)
	assert.Equal(t, "short", d.Blog.Excerpt)
	assert.Equal(t, "<p>Body</p>", d.Blog.Content)
	assert.Equal(t, []string{"a", "b"}, d.Blog.Tags)
	assert.Equal(t, &model.FileMeta{Name: "cover.png", Type: "image/png", Size: 1024}, d.Blog.CoverPhoto)
	assert.Equal(t, []model.FileMeta{{Name: "inline.jpg", Type: "image/jpeg", Size: 2048}}, d.Blog.InlineImages)

	resumed := ResumeBlog(d)
	require.NotNil(t, resumed.CoverPhoto)
	assert.Nil(t, resumed.CoverPhoto.Data)
	assert.True(t, resumed.CoverPhoto.NeedsReattach())
}

func TestDelete(t *testing.T) {
	st := newTestStore(t, storage.NewMemoryStore(), storage.NewMemorySlot())
	st.Upsert(blogDraft("A", "a", "a"))
	st.Upsert(blogDraft("B", "b", "b"))

	var deleted []model.DraftID
	st.OnDelete(func(id model.DraftID) { deleted = append(deleted, id) })

	assert.True(t, st.Delete("A"))
	assert.False(t, st.Delete("A"))
	assert.False(t, st.Delete(""))

	assert.Equal(t, 1, st.Len())
	assert.Equal(t, []model.DraftID{"A"}, deleted)
}

func TestDeleteBySlug(t *testing.T) {
	st := newTestStore(t, storage.NewMemoryStore(), storage.NewMemorySlot())
	st.Upsert(blogDraft("A", "hello", "a"))
	st.Upsert(blogDraft("B", "", "b"))
	st.Upsert(blogDraft("C", "other", "c"))

	tests := []struct {
		name    string
		slug    string
		removed int
		left    int
	}{
		{"empty slug is a no-op", "", 0, 3},
		{"whitespace slug is a no-op", "   ", 0, 3},
		{"unknown slug", "missing", 0, 3},
		{"matching slug", "hello", 1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.removed, st.DeleteBySlug(tt.slug))
			assert.Equal(t, tt.left, st.Len())
		})
	}

	_, ok := st.FindBySlug("hello")
	assert.False(t, ok)
	_, ok = st.Get("B")
	assert.True(t, ok, "drafts without slug survive an empty-slug delete")
}

func TestLoadTreatsReadFailureAsEmpty(t *testing.T) {
	durable := &flakyDurable{Durable: storage.NewMemoryStore(), failGet: true}
	st := newTestStore(t, durable, storage.NewMemorySlot())
	assert.Empty(t, st.Load(context.Background()))
}

func TestLoadTreatsCorruptCollectionAsEmpty(t *testing.T) {
	durable := storage.NewMemoryStore()
	require.NoError(t, durable.Set(context.Background(), config.DraftsKey("blog"), []byte("{not json")))

	st := newTestStore(t, durable, storage.NewMemorySlot())
	assert.Empty(t, st.Load(context.Background()))
}

func TestWriteFailureWarnsOnceAndKeepsMemory(t *testing.T) {
	durable := &flakyDurable{Durable: storage.NewMemoryStore(), failSet: true}
	notes := &recordingNotifier{}
	st := newTestStore(t, durable, storage.NewMemorySlot(), WithNotifier(notes))

	st.Upsert(blogDraft("A", "", "kept in memory"))
	require.NoError(t, st.Flush(context.Background()))

	assert.Equal(t, []string{MsgCouldNotSave}, notes.Messages())
	assert.Equal(t, 1, durable.SetCalls(), "failed writes are not retried")

	d, ok := st.Get("A")
	require.True(t, ok)
	assert.Equal(t, "kept in memory", d.Title)
}

func TestPersistsConvergeToLastWrite(t *testing.T) {
	durable := &flakyDurable{Durable: storage.NewMemoryStore()}
	slot := storage.NewMemorySlot()
	st := newTestStore(t, durable, slot)

	for i := 0; i < 50; i++ {
		st.Upsert(blogDraft("A", "", fmt.Sprintf("v%d", i)))
	}
	require.NoError(t, st.Flush(context.Background()))

	got := reload(t, durable, slot)
	require.Len(t, got, 1)
	assert.Equal(t, "v49", got[0].Title)
	assert.LessOrEqual(t, durable.SetCalls(), 50)
}

func TestFallbackMerge(t *testing.T) {
	t.Run("merged and cleared once", func(t *testing.T) {
		durable := storage.NewMemoryStore()
		slot := storage.NewMemorySlot()

		st := newTestStore(t, durable, slot)
		st.Upsert(blogDraft("A", "my-post", "old"))
		require.NoError(t, st.Flush(context.Background()))

		unload := blogDraft("B", "my-post", "typed before close")
		data, _ := json.Marshal(unload)
		require.NoError(t, slot.Write(config.UnloadSlotKey("blog"), string(data)))

		first := reload(t, durable, slot)
		require.Len(t, first, 1)
		assert.Equal(t, model.DraftID("A"), first[0].ID)
		assert.Equal(t, "typed before close", first[0].Title)

		_, ok, _ := slot.Read(config.UnloadSlotKey("blog"))
		assert.False(t, ok, "slot must be cleared after merge")

		second := reload(t, durable, slot)
		require.Len(t, second, 1)
		assert.Equal(t, first[0].Title, second[0].Title)
		assert.Equal(t, first[0].UpdatedAt.Unix(), second[0].UpdatedAt.Unix(), "fallback must not be applied twice")
	})

	t.Run("malformed payload is discarded and cleared", func(t *testing.T) {
		durable := storage.NewMemoryStore()
		slot := storage.NewMemorySlot()
		require.NoError(t, slot.Write(config.UnloadSlotKey("blog"), "{{{ poison"))

		got := reload(t, durable, slot)
		assert.Empty(t, got)

		_, ok, _ := slot.Read(config.UnloadSlotKey("blog"))
		assert.False(t, ok)
	})

	t.Run("draft of another kind is discarded", func(t *testing.T) {
		slot := storage.NewMemorySlot()
		other := model.Draft{ID: "P", Kind: model.KindProject, Title: "p", Project: &model.ProjectDraft{}}
		data, _ := json.Marshal(other)
		require.NoError(t, slot.Write(config.UnloadSlotKey("blog"), string(data)))

		assert.Empty(t, reload(t, storage.NewMemoryStore(), slot))
	})

	t.Run("merge is persisted", func(t *testing.T) {
		durable := storage.NewMemoryStore()
		slot := storage.NewMemorySlot()
		data, _ := json.Marshal(blogDraft("U", "", "from unload"))
		require.NoError(t, slot.Write(config.UnloadSlotKey("blog"), string(data)))

		st := newTestStore(t, durable, slot)
		st.Load(context.Background())
		require.NoError(t, st.Flush(context.Background()))

		got := reload(t, durable, storage.NewMemorySlot())
		require.Len(t, got, 1)
		assert.Equal(t, model.DraftID("U"), got[0].ID)
	})
}

func TestSummaries(t *testing.T) {
	st := newTestStore(t, storage.NewMemoryStore(), storage.NewMemorySlot(), WithExcerptLength(20))
	d := blogDraft("A", "", "Title")
	d.Blog.Content = "<p>Hello <b>world</b>, this is a much longer body of text</p>"
	d.Blog.CoverPhoto = &model.FileMeta{Name: "c.png"}
	st.Upsert(d)

	sums := st.Summaries()
	require.Len(t, sums, 1)
	assert.Equal(t, model.DraftID("A"), sums[0].ID)
	assert.True(t, sums[0].HasFiles)
	assert.NotContains(t, sums[0].Excerpt, "<")
	assert.LessOrEqual(t, len([]rune(sums[0].Excerpt)), 21)
}

func TestFlushAfterClose(t *testing.T) {
	st := NewStore(model.KindBlog, storage.NewMemoryStore(), storage.NewMemorySlot())
	st.Close()
	st.Close()
	assert.NoError(t, st.Flush(context.Background()))
}

func TestCloseWritesPending(t *testing.T) {
	durable := storage.NewMemoryStore()
	st := NewStore(model.KindBlog, durable, storage.NewMemorySlot())
	st.Upsert(blogDraft("A", "", "pending"))
	st.Close()

	_, err := durable.Get(context.Background(), config.DraftsKey("blog"))
	assert.NoError(t, err)
}
