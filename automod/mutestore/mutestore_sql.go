package mutestore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MuteRow struct {
	GuildID string `gorm:"primaryKey"`
	UserID  string `gorm:"primaryKey"`
	EndsAt  int64  `gorm:"index"`
	Reason  string
	ActorID string
}

func (MuteRow) TableName() string {
	return "automod_mutes"
}

type SQLMuteStore struct {
	DB *gorm.DB
}

var _ MuteStore = (*SQLMuteStore)(nil)

func NewSQLMuteStore(db *gorm.DB) (*SQLMuteStore, error) {
	if err := db.AutoMigrate(&MuteRow{}); err != nil {
		return nil, err
	}
	return &SQLMuteStore{DB: db}, nil
}

func rowFromEntry(e MuteEntry) MuteRow {
	return MuteRow{
		GuildID: e.GuildID,
		UserID:  e.UserID,
		EndsAt:  e.EndsAt,
		Reason:  e.Reason,
		ActorID: e.ActorID,
	}
}

func (s *SQLMuteStore) Load(ctx context.Context) ([]MuteEntry, error) {
	var rows []MuteRow
	if err := s.DB.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]MuteEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, MuteEntry{
			GuildID: r.GuildID,
			UserID:  r.UserID,
			EndsAt:  r.EndsAt,
			Reason:  r.Reason,
			ActorID: r.ActorID,
		})
	}
	return out, nil
}

func (s *SQLMuteStore) Put(ctx context.Context, entry MuteEntry) error {
	row := rowFromEntry(entry)
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"ends_at", "reason", "actor_id"}),
	}).Create(&row).Error
}

func (s *SQLMuteStore) Delete(ctx context.Context, guildID, userID string) (int, error) {
	res := s.DB.WithContext(ctx).Where("guild_id = ? AND user_id = ?", guildID, userID).Delete(&MuteRow{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

func (s *SQLMuteStore) Replace(ctx context.Context, entries []MuteEntry) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&MuteRow{}).Error; err != nil {
			return err
		}
		deduped := Dedupe(entries)
		if len(deduped) == 0 {
			return nil
		}
		rows := make([]MuteRow, 0, len(deduped))
		for _, e := range deduped {
			rows = append(rows, rowFromEntry(e))
		}
		return tx.Create(&rows).Error
	})
}
