// Package content serves the website's blogs, events and news records.
//
// The three kinds share one store and one handler. A Kind describes the table
// layout and the fields a client may set; everything outside that list is
// ignored on write.
package content

import (
	"regexp"
	"strings"
)

type fieldType int

const (
	textField fieldType = iota
	boolField
	jsonField
)

type Field struct {
	Column string
	Type   fieldType
}

type Kind struct {
	// Name is the URL segment, e.g. "blogs".
	Name   string
	Table  string
	Prefix string
	// Label is used in client-facing messages.
	Label string
	// IDKey names the new record's id in the create response.
	IDKey string
	// ListOrder is the ORDER BY clause for List.
	ListOrder string
	Fields    []Field
	// DefaultPublished applies when a create request omits the ispub flag.
	DefaultPublished bool
	// AuthorColumn, when set, defaults to the creating user's name.
	AuthorColumn string
}

func (k *Kind) col(suffix string) string { return k.Prefix + "_" + suffix }

func (k *Kind) IDColumn() string      { return k.col("id") }
func (k *Kind) SlugColumn() string    { return k.col("slug") }
func (k *Kind) TitleColumn() string   { return k.col("title") }
func (k *Kind) ContentColumn() string { return k.col("content") }
func (k *Kind) PubColumn() string     { return k.col("ispub") }
func (k *Kind) OwnerColumn() string   { return k.col("owner_id") }
func (k *Kind) CreatedColumn() string { return k.col("created") }
func (k *Kind) UpdatedColumn() string { return k.col("updated") }

func (k *Kind) field(column string) (Field, bool) {
	for _, f := range k.Fields {
		if f.Column == column {
			return f, true
		}
	}
	return Field{}, false
}

var (
	Blogs = &Kind{
		Name:      "blogs",
		Table:     "blogs",
		Prefix:    "blog",
		Label:     "Blog post",
		IDKey:     "blogId",
		ListOrder: "blog_created DESC, blog_id DESC",
		Fields: []Field{
			{"blog_title", textField},
			{"blog_slug", textField},
			{"blog_heroimg", textField},
			{"blog_content", textField},
			{"blog_author", textField},
			{"blog_tag", textField},
			{"blog_keywords", textField},
			{"blog_description", textField},
			{"blog_ispub", boolField},
		},
		AuthorColumn: "blog_author",
	}
	Events = &Kind{
		Name:      "events",
		Table:     "web_events",
		Prefix:    "events",
		Label:     "Event",
		IDKey:     "eventId",
		ListOrder: "events_start DESC, events_id DESC",
		Fields: []Field{
			{"events_title", textField},
			{"events_slug", textField},
			{"events_heroimg", textField},
			{"events_imgset", jsonField},
			{"events_content", textField},
			{"events_start", textField},
			{"events_end", textField},
			{"events_ispub", boolField},
		},
		DefaultPublished: true,
	}
	News = &Kind{
		Name:      "news",
		Table:     "web_news",
		Prefix:    "news",
		Label:     "News item",
		IDKey:     "newsId",
		ListOrder: "news_created DESC, news_id DESC",
		Fields: []Field{
			{"news_title", textField},
			{"news_slug", textField},
			{"news_img", textField},
			{"news_content", textField},
			{"news_ispub", boolField},
		},
		DefaultPublished: true,
	}
)

// Kinds lists every content kind served under /api/{kind}.
var Kinds = []*Kind{Blogs, Events, News}

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9_ -]+`)
	slugSpaces = regexp.MustCompile(`[ ]+`)
)

// Slugify lowercases title, drops everything but letters, digits, underscores,
// hyphens and spaces, and joins words with hyphens.
func Slugify(title string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "")
	return slugSpaces.ReplaceAllString(strings.TrimSpace(s), "-")
}
