package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"fmsync/internal/models"
	"fmsync/internal/projects"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	confirmStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
)

func reassignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reassign",
		Short: "Interactively change a project's manager",
		Long: "Looks up a project by number, offers the managers used on recent projects, " +
			"and records the change with an audit note in the project history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			client := newClient(logger)
			if err := client.Authenticate(ctx); err != nil {
				return fmt.Errorf("reassign: %w", err)
			}
			defer func() { _ = client.Close(context.Background()) }()

			svc := newDirectory(client, logger)

			fmt.Println(headingStyle.Render(fmt.Sprintf(
				"Change a project's manager to one used on the previous %d projects. Ctrl-C exits at any time.",
				cfg.Sync.Lookback)))

			err := runReassign(ctx, svc, cfg.Sync.Lookback)
			if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
				// Operator abort: stop immediately, keep edits already applied.
				fmt.Println(warnStyle.Render("Exiting."))
				return nil
			}
			return err
		},
	}
}

func runReassign(ctx context.Context, svc *projects.Service, lookback int) error {
	project, err := pickProject(ctx, svc)
	if err != nil {
		return err
	}

	fmt.Println(headingStyle.Render(fmt.Sprintf(
		"Changing project manager for project %s, %s", project.Number, project.Name)))

	prevName := ""
	if project.ManagerID != 0 {
		prev, err := svc.PersonByID(ctx, project.ManagerID)
		switch {
		case errors.Is(err, projects.ErrNotFound):
			fmt.Println(warnStyle.Render(fmt.Sprintf(
				"Manager reference %d does not resolve to a person.", project.ManagerID)))
		case err != nil:
			return err
		default:
			prevName = prev.FullName()
			fmt.Println(headingStyle.Render("Current project manager: " + prevName))
		}
	} else {
		fmt.Println(headingStyle.Render(fmt.Sprintf(
			"No previous project manager found for %s.", project.Number)))
	}

	manager, err := pickManager(ctx, svc, lookback)
	if err != nil {
		return err
	}

	note, err := svc.Reassign(ctx, project, manager, prevName, time.Now())
	if err != nil {
		return err
	}

	fmt.Println(confirmStyle.Render(note))
	return nil
}

// pickProject prompts for a project number until it resolves, letting the
// operator choose among multiple matches by table row.
func pickProject(ctx context.Context, svc *projects.Service) (models.Project, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.Project{}, err
		}

		var number string
		if err := huh.NewInput().
			Title("Enter the project number for the project to change").
			Value(&number).
			Run(); err != nil {
			return models.Project{}, err
		}

		found, err := svc.ProjectsByNumber(ctx, number)
		if err != nil {
			return models.Project{}, err
		}
		if len(found) == 0 {
			fmt.Println(warnStyle.Render(fmt.Sprintf(
				"No projects found with the project number %s. Please enter a valid project number.", number)))
			continue
		}

		if len(found) == 1 {
			// Refetch by internal ID so the record carries a fresh handle.
			return svc.ProjectByID(ctx, found[0].ID)
		}

		fmt.Println(headingStyle.Render(fmt.Sprintf(
			"Multiple projects found with the project number %s. Please choose one.", number)))
		fmt.Println(candidateTable(found))

		options := make([]huh.Option[int64], 0, len(found))
		for i, p := range found {
			label := fmt.Sprintf("%d: %s — %s", i, p.Number, p.Name)
			options = append(options, huh.NewOption(label, p.ID))
		}

		var id int64
		if err := huh.NewSelect[int64]().
			Title("Select the project to change").
			Options(options...).
			Value(&id).
			Run(); err != nil {
			return models.Project{}, err
		}
		return svc.ProjectByID(ctx, id)
	}
}

// pickManager offers the managers of the lookback most recent projects,
// sorted by "Last, First".
func pickManager(ctx context.Context, svc *projects.Service, lookback int) (models.Person, error) {
	managers, err := svc.RecentManagers(ctx, lookback)
	if err != nil {
		return models.Person{}, err
	}
	sort.Slice(managers, func(i, j int) bool {
		return managers[i].SortName() < managers[j].SortName()
	})

	fmt.Println(headingStyle.Render("Select the new project manager"))
	fmt.Println(managerTable(managers))

	options := make([]huh.Option[int64], 0, len(managers))
	byID := make(map[int64]models.Person, len(managers))
	for _, m := range managers {
		options = append(options, huh.NewOption(m.SortName(), m.ID))
		byID[m.ID] = m
	}

	var id int64
	if err := huh.NewSelect[int64]().
		Title("New project manager").
		Options(options...).
		Value(&id).
		Run(); err != nil {
		return models.Person{}, err
	}
	return byID[id], nil
}

func candidateTable(found []models.Project) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Index", "ProjectNumber", "ProjectName")
	for i, p := range found {
		t.Row(strconv.Itoa(i), p.Number, p.Name)
	}
	return t.Render()
}

func managerTable(managers []models.Person) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Name")
	for _, m := range managers {
		t.Row(strconv.FormatInt(m.ID, 10), m.SortName())
	}
	return t.Render()
}
