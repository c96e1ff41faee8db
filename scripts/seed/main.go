// Command seed creates the secretary schema and loads a small demo dataset
// so the API can be exercised locally.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/elo-edu/secretaria-api/pkg/config"
	"github.com/elo-edu/secretaria-api/pkg/database"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		cpf TEXT NOT NULL DEFAULT '',
		rg TEXT NOT NULL DEFAULT '',
		birth_date TEXT NOT NULL DEFAULT '',
		birth_place TEXT NOT NULL DEFAULT '',
		father_name TEXT NOT NULL DEFAULT '',
		mother_name TEXT NOT NULL DEFAULT '',
		registration TEXT NOT NULL DEFAULT '',
		grade_level TEXT NOT NULL DEFAULT '',
		class_group TEXT NOT NULL DEFAULT '',
		shift TEXT NOT NULL DEFAULT '',
		enrolled_at TIMESTAMPTZ,
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS disciplines (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS grades (
		id BIGSERIAL PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		discipline_id TEXT NOT NULL,
		school_year INTEGER NOT NULL,
		term TEXT NOT NULL,
		score NUMERIC(4,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id BIGSERIAL PRIMARY KEY,
		student_id TEXT NOT NULL REFERENCES students(id),
		discipline_id TEXT NOT NULL,
		school_year INTEGER NOT NULL,
		present BOOLEAN NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS documents (
		partition TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		student_id TEXT NOT NULL DEFAULT '',
		issued_at TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ,
		PRIMARY KEY (partition, code)
	)`,
	`CREATE TABLE IF NOT EXISTS institution_profile (
		id INTEGER PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		resource TEXT NOT NULL,
		code TEXT,
		payload JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

func main() {
	withDemoData := flag.Bool("demo", true, "insert demo students, grades and attendance")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Fatalf("failed to apply schema: %v", err)
		}
	}
	log.Println("schema applied")

	if !*withDemoData {
		return
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO students (id, name, cpf, birth_date, birth_place, mother_name, registration, grade_level, class_group, shift, active)
		VALUES
			('s-maria', 'Maria Souza', '111.222.333-44', '2010-05-20', 'Sao Paulo', 'Ana Souza', '2025-001', '9º Ano', 'A', 'Manhã', TRUE),
			('s-joao', 'João Lima', '555.666.777-88', '2011-01-12', 'Campinas', 'Rita Lima', '2025-002', '8º Ano', 'B', 'Tarde', TRUE)
		ON CONFLICT (id) DO NOTHING`); err != nil {
		log.Fatalf("failed to seed students: %v", err)
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO disciplines (id, name) VALUES
			('mat', 'Matemática'),
			('por', 'Português'),
			('cie', 'Ciências')
		ON CONFLICT (id) DO NOTHING`); err != nil {
		log.Fatalf("failed to seed disciplines: %v", err)
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO grades (student_id, discipline_id, school_year, term, score)
		SELECT s.id, d.id, 2024, t.term, 6.0 + random() * 4.0
		FROM students s, disciplines d, (VALUES ('1'), ('2'), ('3'), ('4')) AS t(term)
		WHERE NOT EXISTS (SELECT 1 FROM grades g WHERE g.student_id = s.id)`); err != nil {
		log.Fatalf("failed to seed grades: %v", err)
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO attendance (student_id, discipline_id, school_year, present)
		SELECT s.id, d.id, 2024, random() > 0.1
		FROM students s, disciplines d, generate_series(1, 40)
		WHERE NOT EXISTS (SELECT 1 FROM attendance a WHERE a.student_id = s.id)`); err != nil {
		log.Fatalf("failed to seed attendance: %v", err)
	}

	log.Println("demo data loaded")
}
