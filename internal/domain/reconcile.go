package domain

import "time"

// Stats Reconcile で除外したレコードの内訳
type Stats struct {
	Input      int
	Expired    int
	Duplicates int
	Malformed  int
}

// Dropped 除外されたレコードの合計
func (s Stats) Dropped() int {
	return s.Expired + s.Duplicates + s.Malformed
}

// Reconcile 終了済みのイベントを除外し、IDで重複排除したリストを返す
//
// 終了時刻が now 以降のレコードだけを残し、同じIDは最初に現れたものを採用する。
// 終了時刻を解析できないレコードはエラーにせず除外する。入力の順序は維持される。
func Reconcile(records []Event, now time.Time) []Event {
	out, _ := ReconcileWithStats(records, now)
	return out
}

// ReconcileWithStats Reconcile と同じ結果に除外件数を添えて返す
func ReconcileWithStats(records []Event, now time.Time) ([]Event, Stats) {
	stats := Stats{Input: len(records)}
	out := make([]Event, 0, len(records))
	seen := make(map[int64]struct{}, len(records))

	for _, record := range records {
		end, err := record.End(now.Location())
		if err != nil {
			stats.Malformed++
			continue
		}
		if end.Before(now) {
			stats.Expired++
			continue
		}
		if _, dup := seen[record.ID]; dup {
			stats.Duplicates++
			continue
		}
		seen[record.ID] = struct{}{}
		out = append(out, record)
	}

	return out, stats
}

// RemoveByID 指定IDを除いたコピーを返す
func RemoveByID(records []Event, id int64) []Event {
	out := make([]Event, 0, len(records))
	for _, record := range records {
		if record.ID == id {
			continue
		}
		out = append(out, record)
	}
	return out
}
