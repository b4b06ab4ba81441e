package uploads

import (
	"context"

	"github.com/angelmondragon/medrec-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/medrec-backend/pkg/errors"
	"github.com/angelmondragon/medrec-backend/pkg/pagination"
	"github.com/google/uuid"
)

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return s.list(ctx, &userID, params)
}

func (s *service) ListAll(ctx context.Context, params AdminListParams) (*ListResult, error) {
	return s.list(ctx, params.UserID, params.Pagination)
}

func (s *service) list(ctx context.Context, ownerID *uuid.UUID, params pagination.Params) (*ListResult, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listQuery{
		ownerID: ownerID,
		limit:   pagination.LimitWithBuffer(limit),
		cursor:  cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list uploads")
	}

	rows, nextCursor := pagination.Trim(rows, limit, func(u models.ImageUpload) pagination.Cursor {
		return pagination.Cursor{CreatedAt: u.CreatedAt, ID: u.ID}
	})

	items := make([]UploadDTO, len(rows))
	for i := range rows {
		items[i] = *toDTO(&rows[i], s.imageURL(ctx, rows[i].ImageKey))
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}
