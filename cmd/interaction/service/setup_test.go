package service

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"Loopline.com/cmd/interaction/dal/db"
	"Loopline.com/cmd/model"
)

// setupTestDB points the shared handle at a fresh in-memory database.
// cache=shared keeps every pooled connection on the same database;
// TranslateError matches production so uniqueness violations surface as
// gorm.ErrDuplicatedKey.
func setupTestDB(t *testing.T) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = gdb.AutoMigrate(
		&model.User{},
		&model.Post{},
		&model.Activity{},
		&model.Like{},
		&model.Bookmark{},
		&model.Comment{},
		&model.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test schema: %v", err)
	}
	db.DB = gdb
}

func seedUser(t *testing.T, userId int64, name string) {
	t.Helper()
	user := &model.User{UserId: userId, UserName: name, IsActive: true}
	if err := db.DB.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user %d: %v", userId, err)
	}
}

func seedPost(t *testing.T, postId, userId int64, published bool) {
	t.Helper()
	post := &model.Post{PostId: postId, UserId: userId, Title: "t", Published: published}
	if err := db.DB.Create(post).Error; err != nil {
		t.Fatalf("failed to seed post %d: %v", postId, err)
	}
}

func seedActivity(t *testing.T, activityId, userId int64) {
	t.Helper()
	activity := &model.Activity{ActivityId: activityId, UserId: userId, Content: "c"}
	if err := db.DB.Create(activity).Error; err != nil {
		t.Fatalf("failed to seed activity %d: %v", activityId, err)
	}
}

func activityCounter(t *testing.T, activityId int64, field string) int64 {
	t.Helper()
	var value int64
	err := db.DB.Model(&model.Activity{}).
		Where("activity_id = ?", activityId).
		Pluck(field, &value).Error
	if err != nil {
		t.Fatalf("failed to read %s for activity %d: %v", field, activityId, err)
	}
	return value
}

func at(minutesAgo int) time.Time {
	return time.Now().Add(-time.Duration(minutesAgo) * time.Minute).Truncate(time.Millisecond)
}
