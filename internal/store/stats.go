package store

import (
	"context"
	"os"
)

// Stats holds database statistics.
type Stats struct {
	DBPath            string `json:"db_path"`
	DBSizeBytes       int64  `json:"db_size_bytes"`
	Personas          int    `json:"personas"`
	Conversations     int    `json:"conversations"`
	OpenConversations int    `json:"open_conversations"`
	Memories          int    `json:"memories"`
	DreamstateUpdates int    `json:"dreamstate_updates"`
}

// Stats returns record counts per record set plus the db file size.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM persona`).Scan(&st.Personas)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&st.Conversations)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations WHERE ended_at IS NULL`).Scan(&st.OpenConversations)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&st.Memories)
	s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dreamstate_updates`).Scan(&st.DreamstateUpdates)

	return st, nil
}
