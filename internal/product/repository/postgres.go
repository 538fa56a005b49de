package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-catalog-service/internal/database"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/schema"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB     *sqlx.DB
	schema schema.Capability
}

func NewPGRepository(db *sqlx.DB, caps schema.Capability) *PGRepository {
	return &PGRepository{DB: db, schema: caps}
}

func (r *PGRepository) columns() string {
	cols := []string{"id", "title", "status", "created_at", "updated_at"}
	if r.schema.HasField(model.ModelProduct, schema.FieldSellerID) {
		cols = append(cols, "seller_id")
	}
	if r.schema.HasField(model.ModelProduct, schema.FieldBasePrice) {
		cols = append(cols, "base_price")
	}
	if r.schema.HasField(model.ModelProduct, schema.FieldIsDeleted) {
		cols = append(cols, "is_deleted")
	}
	return strings.Join(cols, ", ")
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1 LIMIT 1`, r.columns())
	err := database.ConnFrom(ctx, r.DB).GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}
