package meetings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"pvcse/minutes"
)

const schema = `
	create table if not exists transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
		blake3_hash text not null,
		provider text not null,
		created_at text not null,
		unique (blake3_hash, provider)
	);

	create table if not exists utterances (
		position integer not null,
		transcript_id integer not null references transcripts(id) on delete cascade,
		speaker text not null,
		text text not null,
		start_ms integer not null,
		end_ms integer not null,
		primary key (position, transcript_id)
	);`

type (
	// SQLiteRepo caches acquired transcripts by audio content hash and
	// provider, so the same recording is never sent to a provider twice and
	// switching provider never serves the other one's diarization.
	SQLiteRepo struct {
		db *sql.DB
	}
)

func NewSQLiteRepo(db *sql.DB) SQLiteRepo {
	return SQLiteRepo{db}
}

func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrating transcript cache: %w", err)
	}
	return nil
}

// GetTranscriptByHash reports found=false when provider has no transcript
// cached for blake3Hash.
func (r SQLiteRepo) GetTranscriptByHash(ctx context.Context, blake3Hash, provider string) (minutes.Transcript, bool, error) {
	var id int64
	err := r.db.
		QueryRowContext(ctx, "select id from transcripts where blake3_hash = $1 and provider = $2", blake3Hash, provider).
		Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return minutes.Transcript{}, false, nil
	}
	if err != nil {
		return minutes.Transcript{}, false, fmt.Errorf("get transcript by hash: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		select speaker, text, start_ms, end_ms
		from utterances
		where transcript_id = $1
		order by position`, id)
	if err != nil {
		return minutes.Transcript{}, false, fmt.Errorf("get utterances: %w", err)
	}
	defer rows.Close()

	var us []minutes.Utterance
	for rows.Next() {
		var u minutes.Utterance
		if err := rows.Scan(&u.SpeakerLabel, &u.Text, &u.Start, &u.End); err != nil {
			return minutes.Transcript{}, false, fmt.Errorf("scanning utterance: %w", err)
		}
		us = append(us, u)
	}
	if err := rows.Err(); err != nil {
		return minutes.Transcript{}, false, fmt.Errorf("get utterances: %w", err)
	}

	return minutes.NewTranscript(us), true, nil
}

// SaveTranscript stores t under blake3Hash and provider. An entry that is
// already cached is left as is.
func (r SQLiteRepo) SaveTranscript(ctx context.Context, blake3Hash, provider string, t minutes.Transcript) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving transcript: begin trx: %w", err)
	}

	var id int64
	err = tx.
		QueryRowContext(
			ctx,
			"insert into transcripts (blake3_hash, provider, created_at) values ($1, $2, $3) on conflict do nothing returning id",
			blake3Hash,
			provider,
			time.Now().UTC().Format(time.RFC3339),
		).
		Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return tx.Rollback()
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback insert transcript: %w", rbErr)
		}
		return fmt.Errorf("persisting transcript into sqlite: %w", err)
	}

	if err := r.insertUtterances(ctx, tx, id, t); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback insert utterances: %w", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving transcript: commiting: %w", err)
	}
	log.Printf("cached %s transcript %s (%d utterances)", provider, blake3Hash, t.Len())
	return nil
}

// utteranceBatch keeps each insert well under SQLite's host parameter limit.
const utteranceBatch = 500

func (r SQLiteRepo) insertUtterances(ctx context.Context, tx *sql.Tx, transcriptID int64, t minutes.Transcript) error {
	us := t.Utterances()
	for start := 0; start < len(us); start += utteranceBatch {
		end := start + utteranceBatch
		if end > len(us) {
			end = len(us)
		}

		var q strings.Builder
		q.WriteString(`insert into utterances (
			position,
			transcript_id,
			speaker,
			text,
			start_ms,
			end_ms) values `)
		args := make([]any, 0, 6*(end-start))
		for n := start; n < end; n++ {
			if n > start {
				q.WriteString(", ")
			}
			b := (n - start) * 6
			fmt.Fprintf(&q, "($%d, $%d, $%d, $%d, $%d, $%d)", b+1, b+2, b+3, b+4, b+5, b+6)
			args = append(args, n, transcriptID, us[n].SpeakerLabel, us[n].Text, us[n].Start, us[n].End)
		}

		if _, err := tx.ExecContext(ctx, q.String(), args...); err != nil {
			return fmt.Errorf("inserting utterances: %w", err)
		}
	}
	return nil
}
