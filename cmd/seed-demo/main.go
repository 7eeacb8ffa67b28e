// Command seed-demo creates a demo student with an enrollment in a course
// and prints a signed JWT for exercising the API locally.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/lumenlms/progression-backend/internal/config"
	"github.com/lumenlms/progression-backend/internal/database"
	"github.com/lumenlms/progression-backend/internal/logger"
	"github.com/lumenlms/progression-backend/internal/service"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Seed Demo Student ===")

	// Name
	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	// Email
	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println() // Newline after password input
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	// Course to enroll into (optional)
	fmt.Print("Enter Course ID to enroll (blank to skip): ")
	courseIDStr, _ := reader.ReadString('\n')
	courseIDStr = strings.TrimSpace(courseIDStr)

	// ─── Logic ─────────────────────────────────────────────────────────

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cfg.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	studentID := uuid.New()
	_, err = pool.Exec(ctx,
		`INSERT INTO students (id, name, email, password_hash) VALUES ($1, $2, $3, $4)`,
		studentID, name, email, string(hashedPassword))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create student")
	}

	if courseIDStr != "" {
		courseID, err := uuid.Parse(courseIDStr)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid course ID")
		}
		_, err = pool.Exec(ctx,
			`INSERT INTO enrollments (id, student_id, course_id) VALUES ($1, $2, $3)`,
			uuid.New(), studentID, courseID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to enroll student")
		}
		fmt.Printf("Enrolled in course %s\n", courseID)
	}

	authService := service.NewAuthService(cfg)
	token, err := authService.GenerateStudentToken(studentID, 24*time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to sign token")
	}

	fmt.Printf("\nSuccess! Student '%s' (%s) created with ID: %s\n", name, email, studentID)
	fmt.Printf("Bearer token (24h): %s\n", token)
}
