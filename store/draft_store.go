package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/*

Draft is an unpublished post document a user is editing.

Id: primary key
Username: owner of the draft
Title: working title, may be empty
Body: raw markdown body
Tags: tag list as a json array
UpdatedAt: last save time, used to order the draft list

*/
type Draft struct {
	Id        string `gorm:"primaryKey"`
	Username  string `gorm:"index"`
	Title     string
	Body      string
	Tags      datatypes.JSON
	CreatedAt time.Time
	UpdatedAt time.Time
}

/*

Preference is one persisted UI preference, e.g. the sidebar layout or the
grid/list toggle of the feed view.

Username:
Key:
	composite primary key
Value: freeform json value chosen by the client

*/
type Preference struct {
	Username  string `gorm:"primaryKey"`
	Key       string `gorm:"primaryKey"`
	Value     datatypes.JSON
	UpdatedAt time.Time
}

// DraftStore persists draft documents and layout preferences.
type DraftStore struct {
	db *gorm.DB
}

func NewDraftStore(db *gorm.DB) *DraftStore {
	return &DraftStore{db: db}
}

// SaveDraft inserts or updates a draft. A draft with no id gets one.
func (s *DraftStore) SaveDraft(draft *Draft) error {
	if draft.Id == "" {
		draft.Id = uuid.New().String()
	}
	if err := s.db.Save(draft).Error; err != nil {
		return errors.Wrap(err, "fail to save draft")
	}
	return nil
}

// ListDrafts returns the user's drafts, most recently saved first.
func (s *DraftStore) ListDrafts(username string) ([]*Draft, error) {
	var drafts []*Draft
	result := s.db.Where("username = ?", username).Order("updated_at desc").Find(&drafts)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "fail to list drafts")
	}
	return drafts, nil
}

// DeleteDraft removes one draft owned by the user.
func (s *DraftStore) DeleteDraft(username, id string) error {
	result := s.db.Where("username = ? AND id = ?", username, id).Delete(&Draft{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "fail to delete draft")
	}
	return nil
}

// SetPreference upserts one preference value.
func (s *DraftStore) SetPreference(username, key string, value []byte) error {
	pref := Preference{Username: username, Key: key, Value: datatypes.JSON(value)}
	if err := s.db.Save(&pref).Error; err != nil {
		return errors.Wrap(err, "fail to save preference")
	}
	return nil
}

// GetPreference reads one preference value; (nil, nil) when unset.
func (s *DraftStore) GetPreference(username, key string) ([]byte, error) {
	var pref Preference
	result := s.db.Where("username = ? AND key = ?", username, key).First(&pref)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "fail to read preference")
	}
	return []byte(pref.Value), nil
}
