package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/matrihub/matrihub-go/internal/domain"
)

// ============================================================
// Favourites
// ============================================================

type favouriteRow struct {
	ID         string `json:"id"`
	OwnerEmail string `json:"owner_email"`
	ProfileID  int64  `json:"profile_id"`
	Name       string `json:"name"`
	Occupation string `json:"occupation"`
	Division   string `json:"division"`
	CreatedAt  string `json:"created_at"`
}

func (r favouriteRow) toDomain() domain.Favourite {
	return domain.Favourite{
		ID:         r.ID,
		OwnerEmail: r.OwnerEmail,
		ProfileID:  r.ProfileID,
		Name:       r.Name,
		Occupation: r.Occupation,
		Division:   r.Division,
		CreatedAt:  parseTime(r.CreatedAt),
	}
}

func (c *Client) CreateFavourite(ctx context.Context, f *domain.Favourite) (*domain.Favourite, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateFavourite")
	defer span.End()

	body, err := c.doPost(ctx, "favourites", map[string]any{
		"id":          f.ID,
		"owner_email": f.OwnerEmail,
		"profile_id":  f.ProfileID,
		"name":        f.Name,
		"occupation":  f.Occupation,
		"division":    f.Division,
		"created_at":  f.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, wrapErr("favourites", err)
	}

	rows, err := decodeRows[favouriteRow](body, "favourite")
	if err != nil {
		return nil, wrapErr("favourites", err)
	}
	if len(rows) == 0 {
		return nil, wrapErr("favourites", fmt.Errorf("insert returned no rows"))
	}

	created := rows[0].toDomain()
	return &created, nil
}

func (c *Client) ListFavourites(ctx context.Context, ownerEmail string) ([]domain.Favourite, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListFavourites")
	defer span.End()

	path := fmt.Sprintf("favourites?owner_email=eq.%s&order=created_at.desc", url.QueryEscape(ownerEmail))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, wrapErr("favourites", err)
	}

	rows, err := decodeRows[favouriteRow](body, "favourites")
	if err != nil {
		return nil, wrapErr("favourites", err)
	}

	favourites := make([]domain.Favourite, 0, len(rows))
	for _, r := range rows {
		favourites = append(favourites, r.toDomain())
	}
	return favourites, nil
}

func (c *Client) DeleteFavourite(ctx context.Context, ownerEmail string, profileID int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteFavourite")
	defer span.End()

	path := fmt.Sprintf("favourites?owner_email=eq.%s&profile_id=eq.%d", url.QueryEscape(ownerEmail), profileID)
	body, err := c.doDelete(ctx, path)
	if err != nil {
		return wrapErr("favourites", err)
	}

	rows, err := decodeRows[favouriteRow](body, "favourite")
	if err != nil {
		return wrapErr("favourites", err)
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "favourite", ID: fmt.Sprint(profileID)}
	}

	c.logger.Info("supabase: favourite removed",
		zap.String("owner_email", ownerEmail),
		zap.Int64("profile_id", profileID),
	)
	return nil
}
