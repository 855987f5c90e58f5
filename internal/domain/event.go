package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Privacy イベントの公開範囲ラベル（サーバー側の値をそのまま保持する）
type Privacy string

const (
	PrivacyPublic  Privacy = "public"
	PrivacyFriends Privacy = "friends"
	PrivacyPrivate Privacy = "private"
)

// Event イベントフィードの1レコード
type Event struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Location    string  `json:"location,omitempty"`
	Description string  `json:"description"`
	Privacy     Privacy `json:"privacy"`
	Story       string  `json:"story,omitempty"`
	Repeat      string  `json:"repeat"`
}

// ErrEmptyTime 時刻文字列が空
var ErrEmptyTime = errors.New("時刻が設定されていません")

// タイムゾーン付きの形式を先に試す
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05-0700",
}

var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime ISO-8601形式の時刻文字列を解析する
// タイムゾーンを含まない形式は loc の時刻として扱う
func ParseTime(value string, loc *time.Location) (time.Time, error) {
	// 小文字の t / z も受け付ける
	value = strings.ToUpper(strings.TrimSpace(value))
	if value == "" {
		return time.Time{}, ErrEmptyTime
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("時刻の解析に失敗しました: %q", value)
}

// Start 開始時刻を解析
func (e Event) Start(loc *time.Location) (time.Time, error) {
	return ParseTime(e.StartTime, loc)
}

// End 終了時刻を解析
func (e Event) End(loc *time.Location) (time.Time, error) {
	return ParseTime(e.EndTime, loc)
}

// IsAllDay 開始・終了が日付のみで指定されているか
func (e Event) IsAllDay() bool {
	return isDateOnly(e.StartTime) && isDateOnly(e.EndTime)
}

func isDateOnly(value string) bool {
	_, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	return err == nil
}
