package drafts

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/debemdeboas/draftdesk/internal/model"
	"github.com/debemdeboas/draftdesk/internal/util"
)

// SlugIndex maps a non-empty slug to the id of the draft carrying it.
type SlugIndex map[string]model.DraftID

// resolveID picks the active id, then a slug match, then a fresh id.
func resolveID(slug string, activeID model.DraftID, bySlug SlugIndex, now time.Time) model.DraftID {
	if activeID != "" {
		return activeID
	}
	if slug != "" {
		if id, ok := bySlug[slug]; ok {
			return id
		}
	}
	return NewID(now)
}

// MakeBlogSnapshot returns nil when title and content are both blank.
func MakeBlogSnapshot(f model.BlogFields, activeID model.DraftID, bySlug SlugIndex, now time.Time) *model.Draft {
	if util.IsBlank(f.Title, f.Content) {
		return nil
	}

	slug := strings.TrimSpace(f.Slug)
	blog := &model.BlogDraft{
		Category: f.Category,
		Excerpt:  f.Excerpt,
		Content:  f.Content,
		Tags:     append([]string(nil), f.Tags...),
	}
	if f.CoverPhoto != nil {
		meta := f.CoverPhoto.Meta()
		blog.CoverPhoto = &meta
	}
	for _, u := range f.InlineImages {
		blog.InlineImages = append(blog.InlineImages, u.Meta())
	}

	return &model.Draft{
		ID:        resolveID(slug, activeID, bySlug, now),
		Kind:      model.KindBlog,
		Slug:      slug,
		Title:     f.Title,
		UpdatedAt: now,
		Blog:      blog,
	}
}

// MakeProjectSnapshot returns nil when title, description and both content fields are blank.
func MakeProjectSnapshot(f model.ProjectFields, activeID model.DraftID, bySlug SlugIndex, now time.Time) *model.Draft {
	if util.IsBlank(f.Title, f.Description, f.ContentOverview, f.ContentDetails) {
		return nil
	}

	slug := strings.TrimSpace(f.Slug)
	project := &model.ProjectDraft{
		Description:     f.Description,
		ContentOverview: f.ContentOverview,
		ContentDetails:  f.ContentDetails,
		Tags:            append([]string(nil), f.Tags...),
	}
	if f.Cover != nil {
		meta := f.Cover.Meta()
		project.Cover = &meta
	}
	for _, u := range f.Gallery {
		project.Gallery = append(project.Gallery, u.Meta())
	}

	return &model.Draft{
		ID:        resolveID(slug, activeID, bySlug, now),
		Kind:      model.KindProject,
		Slug:      slug,
		Title:     f.Title,
		UpdatedAt: now,
		Project:   project,
	}
}

// ResumeBlog repopulates the blog form. Files come back without data and must be re-attached.
func ResumeBlog(d model.Draft) model.BlogFields {
	f := model.BlogFields{
		Title: d.Title,
		Slug:  d.Slug,
	}
	if d.Blog == nil {
		return f
	}

	f.Category = d.Blog.Category
	f.Excerpt = d.Blog.Excerpt
	f.Content = d.Blog.Content
	f.Tags = append([]string(nil), d.Blog.Tags...)
	if d.Blog.CoverPhoto != nil {
		u := d.Blog.CoverPhoto.Upload()
		f.CoverPhoto = &u
	}
	for _, m := range d.Blog.InlineImages {
		f.InlineImages = append(f.InlineImages, m.Upload())
	}
	return f
}

// ResumeProject repopulates the project form. Files come back without data and must be re-attached.
func ResumeProject(d model.Draft) model.ProjectFields {
	f := model.ProjectFields{
		Title: d.Title,
		Slug:  d.Slug,
	}
	if d.Project == nil {
		return f
	}

	f.Description = d.Project.Description
	f.ContentOverview = d.Project.ContentOverview
	f.ContentDetails = d.Project.ContentDetails
	f.Tags = append([]string(nil), d.Project.Tags...)
	if d.Project.Cover != nil {
		u := d.Project.Cover.Upload()
		f.Cover = &u
	}
	for _, m := range d.Project.Gallery {
		f.Gallery = append(f.Gallery, m.Upload())
	}
	return f
}

// Fingerprint hashes the persisted content of a draft, ignoring ID and UpdatedAt.
func Fingerprint(d model.Draft) string {
	d.ID = ""
	d.UpdatedAt = time.Time{}
	data, err := json.Marshal(d)
	if err != nil {
		return ""
	}
	return util.ContentHash(data)
}
