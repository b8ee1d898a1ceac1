package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gnhindia1-ui/collab/internal/auth"
)

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// UserLookup resolves the caller's display name for default blog authors.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*auth.User, error)
}

type Service struct {
	store  *Store
	users  UserLookup
	policy auth.EditPolicy
	now    func() time.Time
}

func NewService(store *Store, users UserLookup, policy auth.EditPolicy) *Service {
	return &Service{store: store, users: users, policy: policy, now: time.Now}
}

func (s *Service) Kind() *Kind { return s.store.Kind() }

// List returns published records to everyone. Drafts need a session.
func (s *Service) List(ctx context.Context, status Status) ([]map[string]any, error) {
	if status != StatusPublished {
		if _, err := auth.Authenticated(ctx); err != nil {
			return nil, err
		}
	}
	return s.store.List(ctx, status)
}

// Get hides drafts from anonymous callers.
func (s *Service) Get(ctx context.Context, idOrSlug string) (map[string]any, error) {
	rec, err := s.store.Get(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if _, err := auth.Authenticated(ctx); err != nil && !truthy(rec[s.Kind().PubColumn()]) {
		return nil, ErrNotFound
	}
	return rec, nil
}

type Created struct {
	ID   int64
	Slug string
}

func (s *Service) Create(ctx context.Context, body map[string]any) (*Created, error) {
	sess, err := auth.Authenticated(ctx)
	if err != nil {
		return nil, err
	}
	k := s.Kind()
	fields, err := s.fields(body)
	if err != nil {
		return nil, err
	}
	title, _ := fields[k.TitleColumn()].(string)
	content, _ := fields[k.ContentColumn()].(string)
	if strings.TrimSpace(title) == "" || strings.TrimSpace(content) == "" {
		return nil, invalid("Title and content are required")
	}
	now := s.now()
	slug, _ := fields[k.SlugColumn()].(string)
	if slug == "" {
		base := Slugify(title)
		if base == "" {
			base = k.Prefix
		}
		slug = base + "-" + strconv.FormatInt(now.UnixMilli(), 10)
		fields[k.SlugColumn()] = slug
	}
	if _, ok := fields[k.PubColumn()]; !ok {
		fields[k.PubColumn()] = k.DefaultPublished
	}
	if k.AuthorColumn != "" {
		if a, _ := fields[k.AuthorColumn].(string); a == "" {
			fields[k.AuthorColumn] = s.authorName(ctx, sess.UserID)
		}
	}
	id, err := s.store.Insert(ctx, fields, sess.UserID, now)
	if err != nil {
		return nil, err
	}
	return &Created{ID: id, Slug: slug}, nil
}

func (s *Service) authorName(ctx context.Context, userID int64) string {
	if s.users != nil {
		if u, err := s.users.GetUserByID(ctx, userID); err == nil && u.Name != "" {
			return u.Name
		}
	}
	return "Admin"
}

func (s *Service) Update(ctx context.Context, idOrSlug string, body map[string]any) error {
	sess, err := auth.Authenticated(ctx)
	if err != nil {
		return err
	}
	k := s.Kind()
	fields, err := s.fields(body)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return invalid("No updates provided")
	}
	for _, c := range []string{k.TitleColumn(), k.ContentColumn(), k.SlugColumn()} {
		if v, ok := fields[c]; ok {
			if str, _ := v.(string); strings.TrimSpace(str) == "" {
				return invalid("%s cannot be empty", c)
			}
		}
	}
	id, owner, err := s.store.Resolve(ctx, idOrSlug)
	if err != nil {
		return err
	}
	if err := s.policy.CanModify(sess, owner); err != nil {
		return err
	}
	return s.store.Update(ctx, id, fields, s.now())
}

func (s *Service) Delete(ctx context.Context, idOrSlug string) error {
	sess, err := auth.Authenticated(ctx)
	if err != nil {
		return err
	}
	id, owner, err := s.store.Resolve(ctx, idOrSlug)
	if err != nil {
		return err
	}
	if err := s.policy.CanModify(sess, owner); err != nil {
		return err
	}
	return s.store.Delete(ctx, id)
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// fields keeps the kind's writable columns from body and converts each value
// to its column type. Other keys are ignored.
func (s *Service) fields(body map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(body))
	for key, raw := range body {
		f, ok := s.Kind().field(key)
		if !ok {
			continue
		}
		v, err := convert(f, raw)
		if err != nil {
			return nil, err
		}
		out[f.Column] = v
	}
	return out, nil
}

func convert(f Field, raw any) (any, error) {
	if raw == nil {
		if f.Type == boolField {
			return nil, invalid("%s must be a boolean", f.Column)
		}
		return nil, nil
	}
	switch f.Type {
	case boolField:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case json.Number:
			n, err := v.Int64()
			if err == nil && (n == 0 || n == 1) {
				return n == 1, nil
			}
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b, nil
			}
		}
		return nil, invalid("%s must be a boolean", f.Column)
	case jsonField:
		if str, ok := raw.(string); ok {
			if str == "" {
				return nil, nil
			}
			if !json.Valid([]byte(str)) {
				return nil, invalid("Invalid JSON for image set")
			}
			return str, nil
		}
		b, err := json.Marshal(raw)
		if err != nil {
			return nil, invalid("Invalid JSON for image set")
		}
		return string(b), nil
	default:
		str, ok := raw.(string)
		if !ok {
			return nil, invalid("%s must be a string", f.Column)
		}
		return str, nil
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case string:
		return t == "1" || t == "true"
	default:
		return false
	}
}
