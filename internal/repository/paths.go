package repository

import (
	"context"
	"strconv"

	"github.com/engagement-api/internal/docstore"
	"github.com/engagement-api/internal/listing"
	"github.com/google/uuid"
)

const (
	defaultPageSize   = 20
	userCommentsGroup = "userComments"
)

var reviewNamespace = uuid.MustParse("6f1d3c7e-2b8a-4c5e-9a1f-0d4e7b2c9a35")

// Paths builds store paths under a common root
type Paths struct {
	Root string
}

func (p Paths) News() string { return docstore.Join(p.Root, "news") }
func (p Paths) Article(id string) string { return docstore.Join(p.News(), id) }
func (p Paths) Feedback(articleID string) string {
	return docstore.Join(p.Article(articleID), "feedback")
}
func (p Paths) Reaction(articleID, userID string) string {
	return docstore.Join(p.Feedback(articleID), userID)
}

func (p Paths) Comments() string { return docstore.Join(p.Root, "comments") }
func (p Paths) Comment(id string) string { return docstore.Join(p.Comments(), id) }

func (p Paths) Users() string { return docstore.Join(p.Root, "users") }
func (p Paths) User(userID string) string { return docstore.Join(p.Users(), userID) }
func (p Paths) UserComments(userID string) string {
	return docstore.Join(p.User(userID), userCommentsGroup)
}
func (p Paths) UserComment(userID, id string) string {
	return docstore.Join(p.UserComments(userID), id)
}
func (p Paths) Interests(userID string) string {
	return docstore.Join(p.User(userID), "interests")
}
func (p Paths) Interest(userID, movieID string) string {
	return docstore.Join(p.Interests(userID), movieID)
}

func (p Paths) Movies() string { return docstore.Join(p.Root, "movies") }
func (p Paths) Movie(id string) string { return docstore.Join(p.Movies(), id) }

func (p Paths) Reviews() string { return docstore.Join(p.Root, "reviews") }

// Review keys one review per user per movie
func (p Paths) Review(movieID, userID string) string {
	return docstore.Join(p.Reviews(), ReviewID(movieID, userID))
}

// ReviewID is a name-based uuid over the length-prefixed (movieID, userID)
// pair, so two different pairs never share a document id.
func ReviewID(movieID, userID string) string {
	name := strconv.Itoa(len(movieID)) + ":" + movieID + "|" + userID
	return uuid.NewSHA1(reviewNamespace, []byte(name)).String()
}

func (p Paths) Promotions() string { return docstore.Join(p.Root, "promotions") }
func (p Paths) Jobs() string { return docstore.Join(p.Root, "jobs") }
func (p Paths) Job(id string) string { return docstore.Join(p.Jobs(), id) }

// getAs loads the document at path into a new T; nil when absent
func getAs[T any](ctx context.Context, store docstore.Store, path string) (*T, *docstore.Document, error) {
	doc, err := store.Get(ctx, path)
	if err != nil || doc == nil {
		return nil, nil, err
	}
	v := new(T)
	if err := doc.DataTo(v); err != nil {
		return nil, nil, err
	}
	return v, doc, nil
}

// queryAll decodes every document matching q
func queryAll[T any](ctx context.Context, store docstore.Store, collection string, q docstore.Query, setID func(*T, string)) ([]*T, error) {
	docs, err := store.Query(ctx, collection, q)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(docs))
	for i := range docs {
		v := new(T)
		if err := docs[i].DataTo(v); err != nil {
			return nil, err
		}
		if setID != nil {
			setID(v, docs[i].ID)
		}
		out = append(out, v)
	}
	return out, nil
}

// queryPage runs q from cursor and returns at most pageSize items. It asks
// for one extra document so HasMore is exact and the last page is never
// followed by an empty one.
func queryPage[T any](ctx context.Context, store docstore.Store, collection string, q docstore.Query, cursor string, pageSize int, setID func(*T, string)) (listing.Page[T], error) {
	run := func(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
		return store.Query(ctx, collection, q)
	}
	decode := func(doc *docstore.Document) (T, error) {
		var v T
		if err := doc.DataTo(&v); err != nil {
			return v, err
		}
		if setID != nil {
			setID(&v, doc.ID)
		}
		return v, nil
	}
	return pageWith(ctx, run, q, cursor, pageSize, decode)
}

type queryFunc func(ctx context.Context, q docstore.Query) ([]docstore.Document, error)

func pageWith[T any](ctx context.Context, run queryFunc, q docstore.Query, cursor string, pageSize int, decode func(*docstore.Document) (T, error)) (listing.Page[T], error) {
	after, err := docstore.DecodeCursor(cursor, q.OrderBy)
	if err != nil {
		return listing.Page[T]{}, err
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	q.After = after
	q.Limit = pageSize + 1

	docs, err := run(ctx, q)
	if err != nil {
		return listing.Page[T]{}, err
	}

	page := listing.Page[T]{Items: make([]T, 0, pageSize)}
	if len(docs) > pageSize {
		docs = docs[:pageSize]
		next, err := docstore.CursorFor(docs[len(docs)-1], q.OrderBy)
		if err != nil {
			return listing.Page[T]{}, err
		}
		page.HasMore = true
		page.NextCursor = docstore.EncodeCursor(next)
	}
	for i := range docs {
		v, err := decode(&docs[i])
		if err != nil {
			return listing.Page[T]{}, err
		}
		page.Items = append(page.Items, v)
	}
	return page, nil
}
