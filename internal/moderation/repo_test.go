package moderation

import (
	"context"
	"testing"

	"github.com/contactalia/contactalia-backend/pkg/db/dbtest"
	"github.com/contactalia/contactalia-backend/pkg/db/models"
	"github.com/contactalia/contactalia-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAppendAndList(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	profileID, modID := uuid.New(), uuid.New()
	reason := "fotos verificadas"

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.AppendWithTx(tx, &models.ModerationLog{ProfileID: profileID, ModeratorID: modID, Action: enums.ModerationActionApproved}); err != nil {
			return err
		}
		return repo.AppendWithTx(tx, &models.ModerationLog{ProfileID: profileID, ModeratorID: modID, Action: enums.ModerationActionVerified, Reason: &reason})
	})
	require.NoError(t, err)

	rows, err := repo.ListByProfile(context.Background(), profileID, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = repo.ListByProfile(context.Background(), uuid.New(), 10)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestAppendRejectsUnknownAction(t *testing.T) {
	db := dbtest.Open(t)
	err := NewRepository(db).AppendWithTx(db, &models.ModerationLog{ProfileID: uuid.New(), ModeratorID: uuid.New(), Action: "deleted"})
	require.Error(t, err)
}
