package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/NotNullDev/nanomgmt/internal/cli/formatter"
	"github.com/NotNullDev/nanomgmt/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// nanomgmtHuhTheme returns a huh theme built on the Gruvbox palette.
func nanomgmtHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(formatter.ColorRed)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

func formErrorOutput(err error) tea.Msg {
	return cmdOutputMsg{output: formatter.StyleRed.Render("Error: ") + err.Error()}
}

func formSuccessOutput(msg string) tea.Msg {
	return cmdOutputMsg{output: msg}
}

// wizardErrorView returns a wizard that just shows an error and pops back.
func wizardErrorView(state *SharedState, title string, err error) View {
	form := huh.NewForm(
		huh.NewGroup(huh.NewNote().Title("Error").Description(err.Error())),
	).WithTheme(nanomgmtHuhTheme()).WithShowHelp(false)
	return newWizardView(state, title, form, func() tea.Cmd {
		return func() tea.Msg { return formErrorOutput(err) }
	})
}

func validateHours(s string) error {
	h, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.New("enter a number of hours")
	}
	if h <= 0 || h > domain.MaxTaskHours {
		return fmt.Errorf("hours must be above 0 and at most %.0f", domain.MaxTaskHours)
	}
	return nil
}

func validateDay(s string) error {
	_, err := domain.ParseTimestamp(strings.TrimSpace(s))
	return err
}

func validateComment(s string) error {
	if len(s) > domain.CommentMaxLen {
		return fmt.Errorf("comment is %d characters, at most %d allowed", len(s), domain.CommentMaxLen)
	}
	return nil
}

// taskFields holds form-bound values for the add and edit task wizards.
type taskFields struct {
	activity string
	date     string
	hours    string
	comment  string
}

func taskFormGroups(f *taskFields, activities []domain.Activity) []*huh.Group {
	options := make([]huh.Option[string], 0, len(activities))
	for _, a := range activities {
		options = append(options, huh.NewOption(a.Name, a.ID))
	}
	return []*huh.Group{
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Activity").
				Options(options...).
				Value(&f.activity),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Day (YYYY-MM-DD)").
				Value(&f.date).
				Validate(validateDay),
			huh.NewInput().
				Title("Hours").
				Value(&f.hours).
				Validate(validateHours),
			huh.NewInput().
				Title("Comment (optional)").
				Value(&f.comment).
				Validate(validateComment),
		),
	}
}

// formActivities lists what a task may be logged against: the activities
// of the selected team, or every loaded activity without one.
func formActivities(state *SharedState) []domain.Activity {
	snap := state.App.Engine.Snapshot()
	if snap.SelectedTeam != nil {
		return snap.AvailableActivities
	}
	return snap.Activities
}

// newTaskFormView creates a wizard that logs a new task, pre-filled with
// the selected activity, today and the default duration.
func newTaskFormView(state *SharedState) View {
	activities := formActivities(state)
	if len(activities) == 0 {
		return wizardErrorView(state, "Log Task", errors.New("no activities to log against; select a team with activities first"))
	}

	fields := &taskFields{
		activity: activities[0].ID,
		date:     domain.DayKey(state.App.now()),
		hours:    strconv.FormatFloat(domain.DefaultTaskHours, 'f', -1, 64),
	}
	if id := state.App.Engine.Snapshot().ActivityID(); id != "" {
		fields.activity = id
	}

	form := huh.NewForm(taskFormGroups(fields, activities)...).
		WithTheme(nanomgmtHuhTheme()).WithShowHelp(false)

	return newWizardView(state, "Log Task", form, func() tea.Cmd {
		return func() tea.Msg { return applyNewTask(state.App, fields) }
	})
}

func applyNewTask(app *App, f *taskFields) tea.Msg {
	day, err := domain.ParseTimestamp(strings.TrimSpace(f.date))
	if err != nil {
		return formErrorOutput(err)
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(f.hours), 64)
	if err != nil {
		return formErrorOutput(fmt.Errorf("hours: %w", err))
	}
	created, err := app.Tasks.Create(context.Background(), domain.Task{
		ActivityID: f.activity,
		Date:       day,
		Duration:   hours,
		Comment:    strings.TrimSpace(f.comment),
	})
	if err != nil {
		return formErrorOutput(err)
	}
	return formSuccessOutput(fmt.Sprintf("%s Logged %s on %s",
		formatter.StyleGreen.Render("✔"),
		formatter.Bold(formatter.FormatHours(created.Duration)),
		created.Day()))
}

// newTaskEditView creates a wizard pre-filled with task's values. Only
// fields that differ are sent, so an untouched form changes nothing.
func newTaskEditView(state *SharedState, task domain.Task) View {
	if task.Status == domain.TaskAccepted {
		return wizardErrorView(state, "Edit Task", domain.ErrStatusLocked)
	}
	activities := formActivities(state)
	if !containsActivity(activities, task.ActivityID) {
		activities = append([]domain.Activity{{ID: task.ActivityID, Name: formatter.OrDash(task.ActivityName)}}, activities...)
	}

	fields := &taskFields{
		activity: task.ActivityID,
		date:     task.Day(),
		hours:    strconv.FormatFloat(task.Duration, 'f', -1, 64),
		comment:  task.Comment,
	}
	form := huh.NewForm(taskFormGroups(fields, activities)...).
		WithTheme(nanomgmtHuhTheme()).WithShowHelp(false)

	return newWizardView(state, "Edit Task", form, func() tea.Cmd {
		return func() tea.Msg { return applyEditTask(state.App, task, fields) }
	})
}

func containsActivity(as []domain.Activity, id string) bool {
	for _, a := range as {
		if a.ID == id {
			return true
		}
	}
	return false
}

func applyEditTask(app *App, task domain.Task, f *taskFields) tea.Msg {
	var patch domain.TaskPatch
	if f.activity != task.ActivityID {
		patch.ActivityID = &f.activity
	}
	if day := strings.TrimSpace(f.date); day != task.Day() {
		d, err := domain.ParseTimestamp(day)
		if err != nil {
			return formErrorOutput(err)
		}
		patch.Date = &d
	}
	hours, err := strconv.ParseFloat(strings.TrimSpace(f.hours), 64)
	if err != nil {
		return formErrorOutput(fmt.Errorf("hours: %w", err))
	}
	if hours != task.Duration {
		patch.Duration = &hours
	}
	if c := strings.TrimSpace(f.comment); c != task.Comment {
		patch.Comment = &c
	}
	if patch.IsEmpty() {
		return formSuccessOutput(formatter.Dim("No changes."))
	}

	updated, err := app.Tasks.Update(context.Background(), task.ID, patch)
	if err != nil {
		return formErrorOutput(err)
	}
	return formSuccessOutput(fmt.Sprintf("%s Updated task %s (%s)",
		formatter.StyleGreen.Render("✔"),
		formatter.TruncID(updated.ID),
		formatter.StatusPill(updated.Status)))
}
