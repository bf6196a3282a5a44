package drafts

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/debemdeboas/draftdesk/internal/model"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestMakeBlogSnapshotBlank(t *testing.T) {
	tests := []struct {
		name   string
		fields model.BlogFields
	}{
		{"empty form", model.BlogFields{}},
		{"whitespace only", model.BlogFields{Title: "  ", Content: "\n\t"}},
		{"tags alone", model.BlogFields{Tags: []string{"go", "drafts"}}},
		{"slug and category", model.BlogFields{Slug: "hello", Category: "news", Excerpt: "x"}},
		{"cover only", model.BlogFields{CoverPhoto: &model.Upload{Name: "c.png"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, MakeBlogSnapshot(tt.fields, "", nil, now))
		})
	}
}

func TestMakeProjectSnapshotBlank(t *testing.T) {
	tests := []struct {
		name   string
		fields model.ProjectFields
	}{
		{"empty form", model.ProjectFields{}},
		{"whitespace only", model.ProjectFields{Title: " ", Description: " ", ContentOverview: "\t", ContentDetails: "\n"}},
		{"tags alone", model.ProjectFields{Tags: []string{"rust"}}},
		{"gallery only", model.ProjectFields{Gallery: []model.Upload{{Name: "g.png"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, MakeProjectSnapshot(tt.fields, "", nil, now))
		})
	}
}

func TestMakeSnapshotAnyRequiredFieldIsEnough(t *testing.T) {
	assert.NotNil(t, MakeBlogSnapshot(model.BlogFields{Title: "Hello"}, "", nil, now))
	assert.NotNil(t, MakeBlogSnapshot(model.BlogFields{Content: "World"}, "", nil, now))
	assert.NotNil(t, MakeProjectSnapshot(model.ProjectFields{ContentDetails: "details"}, "", nil, now))
	assert.NotNil(t, MakeProjectSnapshot(model.ProjectFields{Description: "desc"}, "", nil, now))
}

func TestMakeSnapshotIDPreference(t *testing.T) {
	bySlug := SlugIndex{"my-post": "from-slug"}

	tests := []struct {
		name     string
		slug     string
		activeID model.DraftID
		want     model.DraftID
	}{
		{"active id wins", "my-post", "active", "active"},
		{"slug match", "my-post", "", "from-slug"},
		{"slug match after trimming", "  my-post ", "", "from-slug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := MakeBlogSnapshot(model.BlogFields{Title: "t", Slug: tt.slug}, tt.activeID, bySlug, now)
			require.NotNil(t, d)
			assert.Equal(t, tt.want, d.ID)
		})
	}

	t.Run("fresh id", func(t *testing.T) {
		d := MakeBlogSnapshot(model.BlogFields{Title: "t", Slug: "unknown"}, "", bySlug, now)
		require.NotNil(t, d)
		assert.Regexp(t, regexp.MustCompile(`^1714564800000-[A-Za-z0-9]+$`), string(d.ID))
	})
}

func TestMakeSnapshotDegradesUploads(t *testing.T) {
	f := model.ProjectFields{
		Title:   "Project",
		Cover:   &model.Upload{Name: "cover.png", Type: "image/png", Size: 10, Data: []byte("binary")},
		Gallery: []model.Upload{{Name: "a.png", Type: "image/png", Size: 1, Data: []byte("a")}},
	}
	d := MakeProjectSnapshot(f, "", nil, now)
	require.NotNil(t, d)
	assert.Equal(t, model.KindProject, d.Kind)
	assert.Equal(t, &model.FileMeta{Name: "cover.png", Type: "image/png", Size: 10}, d.Project.Cover)
	assert.Equal(t, []model.FileMeta{{Name: "a.png", Type: "image/png", Size: 1}}, d.Project.Gallery)
	assert.Equal(t, now, d.UpdatedAt)
}

func TestResumeIsTotal(t *testing.T) {
	blog := ResumeBlog(model.Draft{ID: "x", Title: "only title"})
	assert.Equal(t, "only title", blog.Title)
	assert.Nil(t, blog.CoverPhoto)

	project := ResumeProject(model.Draft{ID: "y", Slug: "s"})
	assert.Equal(t, "s", project.Slug)
}

func TestResumeProjectRoundTrip(t *testing.T) {
	f := model.ProjectFields{
		Title:           "P",
		Slug:            "p",
		Description:     "d",
		ContentOverview: "o",
		ContentDetails:  "c",
		Tags:            []string{"x"},
		Cover:           &model.Upload{Name: "cover.png", Type: "image/png", Size: 3},
	}
	d := MakeProjectSnapshot(f, "", nil, now)
	require.NotNil(t, d)

	assert.Equal(t, f, ResumeProject(*d))
}

func TestFingerprint(t *testing.T) {
	a := MakeBlogSnapshot(model.BlogFields{Title: "Hello", Content: "World"}, "one", nil, now)
	b := MakeBlogSnapshot(model.BlogFields{Title: "Hello", Content: "World"}, "two", nil, now.Add(time.Hour))
	c := MakeBlogSnapshot(model.BlogFields{Title: "Hello", Content: "World!"}, "one", nil, now)

	assert.Equal(t, Fingerprint(*a), Fingerprint(*b), "id and time do not count")
	assert.NotEqual(t, Fingerprint(*a), Fingerprint(*c))
}

func TestNewIDIsUnique(t *testing.T) {
	seen := map[model.DraftID]bool{}
	for i := 0; i < 200; i++ {
		id := NewID(now)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
