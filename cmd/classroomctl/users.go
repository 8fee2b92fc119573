package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/classroom/internal/model"
)

func newCreateUserCmd(a *app) *cobra.Command {
	var opts struct {
		Username string
		Password string
		Name     string
		Role     string
	}

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a teacher or student account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role := model.UserRole(strings.ToUpper(opts.Role))
			u, err := a.authService().CreateUser(cmd.Context(), opts.Username, opts.Password, opts.Name, role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", u.Role, u.Username, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Username, "username", "", "login name")
	cmd.Flags().StringVar(&opts.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Role, "role", string(model.UserRoleStudent), "STUDENT or TEACHER")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newCreateStudentsCmd(a *app) *cobra.Command {
	var opts struct {
		File string
	}

	cmd := &cobra.Command{
		Use:   "create-students",
		Short: "Create student accounts from a CSV of username,name,password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(opts.File)
			if err != nil {
				return err
			}
			defer f.Close()

			students, err := parseStudentsCSV(f)
			if err != nil {
				return err
			}

			failed := 0
			for _, res := range a.authService().BatchCreateStudents(cmd.Context(), students) {
				if res.Success {
					fmt.Fprintf(cmd.OutOrStdout(), "ok      %s (%s)\n", res.Username, res.ID)
					continue
				}
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "failed  %s: %s\n", res.Username, res.Error)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d created, %d failed\n", len(students)-failed, failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.File, "file", "", "CSV file path")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// parseStudentsCSV reads username,name,password rows. A first row whose
// first cell is "username" is treated as a header.
func parseStudentsCSV(r io.Reader) ([]model.NewStudent, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var students []model.NewStudent
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "username") {
			continue
		}
		students = append(students, model.NewStudent{
			Username: strings.TrimSpace(rec[0]),
			Name:     strings.TrimSpace(rec[1]),
			Password: rec[2],
		})
	}
	if len(students) == 0 {
		return nil, errors.New("no students in file")
	}
	return students, nil
}
