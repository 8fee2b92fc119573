package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/classroom/internal/llm"
	"github.com/capitalize-ai/classroom/internal/model"
	"github.com/capitalize-ai/classroom/internal/service"
	"github.com/capitalize-ai/classroom/internal/store"
)

func newSeedCmd(a *app) *cobra.Command {
	var opts struct {
		Teacher string
	}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the default AI configs and task template",
		Long: "Insert the default AI configs (matched by provider and model) and the " +
			"default task template, owned by --teacher or the first teacher account.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.store.Migrate(ctx, a.log); err != nil {
				return err
			}

			aiConfigs := service.NewAIConfigService(a.store, llm.NewRegistry(), a.log)
			n, err := aiConfigs.Seed(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "AI configs created: %d\n", n)

			teacher, err := seedOwner(ctx, a.store, opts.Teacher)
			if err != nil {
				return err
			}
			if teacher == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no teacher account; skipping task template")
				return nil
			}

			activity := service.NewActivityRecorder(a.store, nil, a.log)
			tmpl, err := service.NewProjectService(a.store, activity, a.log).EnsureDefaultTemplate(ctx, teacher.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "task template: %s (%s)\n", tmpl.Name, tmpl.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Teacher, "teacher", "", "username of the template owner")
	return cmd
}

// seedOwner returns the named teacher, or the first teacher when username is
// empty, ordered by name. It returns nil without error when there is no teacher at all.
func seedOwner(ctx context.Context, s *store.Store, username string) (*model.User, error) {
	if username != "" {
		u, err := s.GetUserByUsername(ctx, username)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user %q not found", username)
		}
		if err != nil {
			return nil, err
		}
		if u.Role != model.UserRoleTeacher {
			return nil, fmt.Errorf("user %q is not a teacher", username)
		}
		return u, nil
	}

	teachers, err := s.ListUsersByRole(ctx, model.UserRoleTeacher)
	if err != nil {
		return nil, err
	}
	if len(teachers) == 0 {
		return nil, nil
	}
	return &teachers[0], nil
}
