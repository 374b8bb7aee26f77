package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"dental-bot/internal/domain/entity"
	"dental-bot/internal/domain/port"
)

const examinationsSchema = `
create table if not exists examinations (
	id           uuid primary key,
	user_id      bigint not null,
	created_at   timestamptz not null default now(),
	image_width  integer not null default 0,
	image_height integer not null default 0,
	detections   jsonb not null,
	report       jsonb not null,
	statements   jsonb not null,
	explanation  jsonb
);
create index if not exists examinations_user_created_idx on examinations(user_id, created_at desc);`

// PostgresExaminationRepository хранит обследования в Postgres.
type PostgresExaminationRepository struct{ DB *sql.DB }

// OpenPostgres открывает пул соединений через драйвер pgx и проверяет связь.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func NewPostgresExaminationRepository(db *sql.DB) *PostgresExaminationRepository {
	return &PostgresExaminationRepository{DB: db}
}

// Migrate создаёт таблицу обследований, если её нет.
func (r *PostgresExaminationRepository) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, examinationsSchema)
	return err
}

// Save сохраняет/обновляет обследование. PK: id.
func (r *PostgresExaminationRepository) Save(ctx context.Context, exam *entity.Examination) error {
	detections, err := json.Marshal(exam.Detections)
	if err != nil {
		return fmt.Errorf("marshal detections: %w", err)
	}
	report, err := json.Marshal(exam.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	statements, err := json.Marshal(exam.Report.Statements())
	if err != nil {
		return fmt.Errorf("marshal statements: %w", err)
	}
	var explanation []byte
	if exam.Explanation != nil {
		if explanation, err = json.Marshal(exam.Explanation); err != nil {
			return fmt.Errorf("marshal explanation: %w", err)
		}
	}

	const q = `
insert into examinations(id, user_id, created_at, image_width, image_height, detections, report, statements, explanation)
values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
on conflict (id)
do update set detections=excluded.detections, report=excluded.report,
              statements=excluded.statements, explanation=excluded.explanation`
	_, err = r.DB.ExecContext(ctx, q,
		exam.ID, exam.UserID, exam.CreatedAt, exam.ImageWidth, exam.ImageHeight,
		detections, report, statements, explanation)
	return err
}

// Get возвращает обследование по ID.
func (r *PostgresExaminationRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Examination, error) {
	const q = `select id, user_id, created_at, image_width, image_height, detections, report, explanation
	           from examinations where id=$1`
	exam, err := scanExamination(r.DB.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	return exam, err
}

// ListByUser возвращает последние обследования пользователя, новые первыми.
func (r *PostgresExaminationRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*entity.Examination, error) {
	const q = `select id, user_id, created_at, image_width, image_height, detections, report, explanation
	           from examinations where user_id=$1 order by created_at desc limit $2`
	rows, err := r.DB.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Examination
	for rows.Next() {
		exam, err := scanExamination(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, exam)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExamination(row rowScanner) (*entity.Examination, error) {
	var (
		exam        entity.Examination
		detections  []byte
		report      []byte
		explanation []byte
	)
	if err := row.Scan(&exam.ID, &exam.UserID, &exam.CreatedAt, &exam.ImageWidth, &exam.ImageHeight,
		&detections, &report, &explanation); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(detections, &exam.Detections); err != nil {
		return nil, fmt.Errorf("unmarshal detections: %w", err)
	}
	if err := json.Unmarshal(report, &exam.Report); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	if len(explanation) > 0 {
		exam.Explanation = &entity.Explanation{}
		if err := json.Unmarshal(explanation, exam.Explanation); err != nil {
			return nil, fmt.Errorf("unmarshal explanation: %w", err)
		}
	}
	return &exam, nil
}

var _ port.ExaminationRepository = (*PostgresExaminationRepository)(nil)
