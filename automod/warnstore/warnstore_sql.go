package warnstore

import (
	"context"

	"gorm.io/gorm"
)

type WarnRow struct {
	ID      uint   `gorm:"primarykey"`
	GuildID string `gorm:"index:idx_warn_subject"`
	UserID  string `gorm:"index:idx_warn_subject"`
	ActorID string
	Rule    string
	Reason  string
	At      int64
}

func (WarnRow) TableName() string {
	return "automod_warns"
}

// WarnStore in a SQL database (sqlite or postgres) through gorm. Rows are ordered by primary key, which is insertion order.
type SQLWarnStore struct {
	DB *gorm.DB
}

var _ WarnStore = (*SQLWarnStore)(nil)

func NewSQLWarnStore(db *gorm.DB) (*SQLWarnStore, error) {
	if err := db.AutoMigrate(&WarnRow{}); err != nil {
		return nil, err
	}
	return &SQLWarnStore{DB: db}, nil
}

func (s *SQLWarnStore) AddWarn(ctx context.Context, guildID, userID string, rec WarnRecord) (int, error) {
	var count int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := WarnRow{
			GuildID: guildID,
			UserID:  userID,
			ActorID: rec.ActorID,
			Rule:    rec.Rule,
			Reason:  rec.Reason,
			At:      rec.At,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&WarnRow{}).Where("guild_id = ? AND user_id = ?", guildID, userID).Count(&count).Error
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (s *SQLWarnStore) ClearWarns(ctx context.Context, guildID, userID string) error {
	return s.DB.WithContext(ctx).Where("guild_id = ? AND user_id = ?", guildID, userID).Delete(&WarnRow{}).Error
}

func (s *SQLWarnStore) GetWarns(ctx context.Context, guildID, userID string) ([]WarnRecord, error) {
	var rows []WarnRow
	if err := s.DB.WithContext(ctx).Where("guild_id = ? AND user_id = ?", guildID, userID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]WarnRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, WarnRecord{
			ActorID: r.ActorID,
			Rule:    r.Rule,
			Reason:  r.Reason,
			At:      r.At,
		})
	}
	return out, nil
}
