// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"fmt"

	"github.com/combinefoundation/portal/internal/app/store/audit"
	"github.com/combinefoundation/portal/internal/app/store/categories"
	"github.com/combinefoundation/portal/internal/app/store/courses"
	"github.com/combinefoundation/portal/internal/app/store/errorlog"
	"github.com/combinefoundation/portal/internal/app/store/idcards"
	"github.com/combinefoundation/portal/internal/app/store/lectures"
	"github.com/combinefoundation/portal/internal/app/store/passwordreset"
	"github.com/combinefoundation/portal/internal/app/store/posts"
	"github.com/combinefoundation/portal/internal/app/store/tasks"
	userstore "github.com/combinefoundation/portal/internal/app/store/users"
	"go.mongodb.org/mongo-driver/mongo"
)

// EnsureAll creates every collection's indexes. Called from EnsureSchema
// during boot so a fresh database comes up with its constraints in place.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", userstore.New(db).EnsureIndexes},
		{"courses", courses.New(db).EnsureIndexes},
		{"posts", posts.New(db).EnsureIndexes},
		{"lectures", lectures.New(db).EnsureIndexes},
		{"categories", categories.New(db).EnsureIndexes},
		{"tasks", tasks.New(db).EnsureIndexes},
		{"id_cards", idcards.New(db).EnsureIndexes},
		{"password_resets", passwordreset.New(db).EnsureIndexes},
		{"audit_logs", audit.New(db).EnsureIndexes},
		{"error_logs", errorlog.New(db).EnsureIndexes},
	}
	for _, st := range steps {
		if err := st.fn(ctx); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", st.name, err)
		}
	}
	return nil
}
