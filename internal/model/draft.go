// Package model defines the draft records and editor form shapes shared by the service.
package model

import (
	"strings"
	"time"
)

// Kind selects the editor a draft belongs to. Each kind has its own draft collection.
type Kind string

const (
	KindBlog    Kind = "blog"
	KindProject Kind = "project"
)

func (k Kind) Valid() bool {
	return k == KindBlog || k == KindProject
}

func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

type DraftID string

type SessionID string

type UserID string

// FileMeta stands in for a file field. The file itself never survives a reload.
type FileMeta struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// Upload is a file attached in the editor.
// Data is nil when the upload was restored from a draft and must be re-attached.
type Upload struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data []byte `json:"data,omitempty"`
}

func (u Upload) Meta() FileMeta {
	return FileMeta{Name: u.Name, Type: u.Type, Size: u.Size}
}

func (m FileMeta) Upload() Upload {
	return Upload{Name: m.Name, Type: m.Type, Size: m.Size}
}

// NeedsReattach reports whether the upload only carries metadata.
func (u Upload) NeedsReattach() bool {
	return u.Data == nil && u.Name != ""
}

// BlogFields is the blog editor form.
type BlogFields struct {
	Title        string   `json:"title"`
	Slug         string   `json:"slug"`
	Category     string   `json:"category"`
	Excerpt      string   `json:"excerpt"`
	Content      string   `json:"content"`
	Tags         []string `json:"tags"`
	CoverPhoto   *Upload  `json:"cover_photo,omitempty"`
	InlineImages []Upload `json:"inline_images,omitempty"`
}

// ProjectFields is the project editor form.
type ProjectFields struct {
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	Description     string   `json:"description"`
	ContentOverview string   `json:"content_overview"`
	ContentDetails  string   `json:"content_details"`
	Tags            []string `json:"tags"`
	Cover           *Upload  `json:"cover,omitempty"`
	Gallery         []Upload `json:"gallery,omitempty"`
}

// BlogDraft is the persisted part of a blog form.
type BlogDraft struct {
	Category     string     `json:"category"`
	Excerpt      string     `json:"excerpt"`
	Content      string     `json:"content"`
	Tags         []string   `json:"tags"`
	CoverPhoto   *FileMeta  `json:"cover_photo,omitempty"`
	InlineImages []FileMeta `json:"inline_images,omitempty"`
}

// ProjectDraft is the persisted part of a project form.
type ProjectDraft struct {
	Description     string     `json:"description"`
	ContentOverview string     `json:"content_overview"`
	ContentDetails  string     `json:"content_details"`
	Tags            []string   `json:"tags"`
	Cover           *FileMeta  `json:"cover,omitempty"`
	Gallery         []FileMeta `json:"gallery,omitempty"`
}

// Draft is a snapshot of an in-progress editor form that has not been submitted.
// Exactly one of Blog or Project is set, matching Kind.
type Draft struct {
	ID        DraftID   `json:"id"`
	Kind      Kind      `json:"kind"`
	Slug      string    `json:"slug,omitempty"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`

	Blog    *BlogDraft    `json:"blog,omitempty"`
	Project *ProjectDraft `json:"project,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate a stored draft.
func (d Draft) Clone() Draft {
	out := d
	if d.Blog != nil {
		b := *d.Blog
		b.Tags = append([]string(nil), d.Blog.Tags...)
		b.InlineImages = append([]FileMeta(nil), d.Blog.InlineImages...)
		if d.Blog.CoverPhoto != nil {
			c := *d.Blog.CoverPhoto
			b.CoverPhoto = &c
		}
		out.Blog = &b
	}
	if d.Project != nil {
		p := *d.Project
		p.Tags = append([]string(nil), d.Project.Tags...)
		p.Gallery = append([]FileMeta(nil), d.Project.Gallery...)
		if d.Project.Cover != nil {
			c := *d.Project.Cover
			p.Cover = &c
		}
		out.Project = &p
	}
	return out
}

// PrimaryText is the long-form body used for excerpts.
func (d Draft) PrimaryText() string {
	switch {
	case d.Blog != nil:
		return d.Blog.Content
	case d.Project != nil:
		if strings.TrimSpace(d.Project.Description) != "" {
			return d.Project.Description
		}
		return d.Project.ContentOverview
	}
	return ""
}

// HasFiles reports whether the draft references files that must be re-attached on resume.
func (d Draft) HasFiles() bool {
	switch {
	case d.Blog != nil:
		return d.Blog.CoverPhoto != nil || len(d.Blog.InlineImages) > 0
	case d.Project != nil:
		return d.Project.Cover != nil || len(d.Project.Gallery) > 0
	}
	return false
}

// DraftSummary is the listing shape shown in the editor's draft picker.
type DraftSummary struct {
	ID        DraftID   `json:"id"`
	Kind      Kind      `json:"kind"`
	Slug      string    `json:"slug,omitempty"`
	Title     string    `json:"title"`
	Excerpt   string    `json:"excerpt"`
	HasFiles  bool      `json:"has_files"`
	UpdatedAt time.Time `json:"updated_at"`
}
