package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"

	"github.com/aanand-mishra/biblioteca/internal/storage"
	"github.com/aanand-mishra/biblioteca/internal/types"
)

const insertBook = `INSERT INTO books (title, author, year, genre, available)
	VALUES (?, ?, ?, ?, ?) RETURNING id`

// booksQuery selects every book column, ordered by title. The id tiebreak
// keeps the order stable for books sharing a title.
func (s *Store) booksQuery() *goqu.SelectDataset {
	return s.qb.From("books").
		Select("id", "title", "author", "year", "genre", "available").
		Order(goqu.C("title").Asc(), goqu.C("id").Asc())
}

func (s *Store) ListBooks(ctx context.Context) ([]types.Book, error) {
	books := make([]types.Book, 0)
	if err := s.selectAll(ctx, &books, s.booksQuery()); err != nil {
		return nil, fmt.Errorf("ListBooks: %w", err)
	}
	return books, nil
}

// SearchBooks matches query as a substring of title or author. Case
// sensitivity follows the store's LIKE: insensitive for ASCII on SQLite,
// sensitive on PostgreSQL.
func (s *Store) SearchBooks(ctx context.Context, query string) ([]types.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListBooks(ctx)
	}

	like := "%" + query + "%"
	ds := s.booksQuery().Where(goqu.Or(
		goqu.C("title").Like(like),
		goqu.C("author").Like(like),
	))

	books := make([]types.Book, 0)
	if err := s.selectAll(ctx, &books, ds); err != nil {
		return nil, fmt.Errorf("SearchBooks: %w", err)
	}
	return books, nil
}

func (s *Store) AddBook(ctx context.Context, title, author string, year *int, genre string) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(insertBook), title, author, year, genre, true).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("AddBook: %w", err)
	}
	return id, nil
}

func (s *Store) GetBookByID(ctx context.Context, id int64) (types.Book, error) {
	var book types.Book
	err := s.selectOne(ctx, &book, s.booksQuery().Where(goqu.C("id").Eq(id)))
	if err != nil {
		return types.Book{}, notFound(err, storage.ErrBookNotFound)
	}
	return book, nil
}
