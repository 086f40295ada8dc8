// Package setup is the interactive configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/rebalancer/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

const wizardTitle = "REBALANCER CONFIG WIZARD"

// Answers collected by the wizard.
type Answers struct {
	Platform      string
	MonthlyBudget string
	Schedule      string
	Allocations   []config.AllocationTmp
	Notify        bool
}

// BuildConfig turns wizard answers into a config that passes config validation.
func BuildConfig(a Answers) (config.ConfigTmp, error) {
	tmp := config.ConfigTmp{
		Platform:      a.Platform,
		MonthlyBudget: strings.TrimSpace(a.MonthlyBudget),
		Allocations:   a.Allocations,
		Schedule:      strings.TrimSpace(a.Schedule),
		Notify:        config.NotifyTmp{Enabled: a.Notify},
	}

	if _, err := config.FromTmp(tmp); err != nil {
		return config.ConfigTmp{}, err
	}
	return tmp, nil
}

// RunTUI launches the terminal wizard and writes the resulting config to path.
func RunTUI(path string) error {
	var (
		answers  Answers
		confirm  bool
		fraction decimal.Decimal
	)

	answers.MonthlyBudget = "100"
	answers.Schedule = "0 * * * *"

	clearScreen()
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Hourly DCA into a target portfolio.\n"))

	fmt.Println(stepStyle.Render("STEP 1: PLATFORM"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Exchange Platform").
				Options(
					huh.NewOption("Binance", config.PlatformBinance),
					huh.NewOption("Bybit", config.PlatformBybit),
					huh.NewOption("Simulation", config.PlatformSimulate),
				).
				Value(&answers.Platform),
		),
	).Run()
	if err != nil {
		return err
	}

	clearScreen()
	fmt.Println(stepStyle.Render("STEP 2: BUDGET"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Monthly budget (USD)").
				Value(&answers.MonthlyBudget).
				Validate(validateBudget),
			huh.NewInput().
				Title("Schedule").
				Description("Cron expression, leave empty to run once per invocation").
				Value(&answers.Schedule),
		),
	).Run()
	if err != nil {
		return err
	}

	for more := true; more; {
		var symbol, market, fractionStr string

		clearScreen()
		fmt.Println(stepStyle.Render(fmt.Sprintf("STEP 3: ASSET #%d", len(answers.Allocations)+1)))
		fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render(
			fmt.Sprintf("Allocated so far: %s", fraction.String())))

		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Symbol").
					Description("e.g. BTC").
					Value(&symbol).
					Validate(notEmpty("symbol")),
				huh.NewInput().
					Title("Market").
					Description("Exchange market id, e.g. BTCUSDT").
					Value(&market).
					Validate(notEmpty("market")),
				huh.NewInput().
					Title("Target fraction").
					Description("Between 0 and 1, e.g. 0.5").
					Value(&fractionStr).
					Validate(validateFraction),
				huh.NewConfirm().
					Title("Add another asset?").
					Value(&more),
			),
		).Run()
		if err != nil {
			return err
		}

		answers.Allocations = append(answers.Allocations, config.AllocationTmp{
			Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
			Market:   strings.ToUpper(strings.TrimSpace(market)),
			Fraction: strings.TrimSpace(fractionStr),
		})
		fraction = fraction.Add(decimal.RequireFromString(strings.TrimSpace(fractionStr)))
	}

	clearScreen()
	fmt.Println(stepStyle.Render("STEP 4: NOTIFICATIONS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Email me after every trade?").
				Description("Needs EMAIL_SENDER, EMAIL_PASSWORD and EMAIL_RECIPIENT in the environment").
				Value(&answers.Notify),
		),
	).Run()
	if err != nil {
		return err
	}

	cfgTmp, err := BuildConfig(answers)
	if err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	clearScreen()
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary(answers)))
	if fraction.GreaterThan(decimal.NewFromInt(1)) {
		fmt.Println(lipgloss.NewStyle().Foreground(highlight).Render("Warning: target fractions add up to more than 1"))
	}

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	data, err := config.Marshal(cfgTmp)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\nConfiguration saved to %s", path)))
	time.Sleep(1500 * time.Millisecond)
	return nil
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render(wizardTitle))
}

func summary(a Answers) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\nMonthly budget: %s USD\n", a.Platform, a.MonthlyBudget)
	if a.Schedule == "" {
		b.WriteString("Schedule: run once\n")
	} else {
		fmt.Fprintf(&b, "Schedule: %s\n", a.Schedule)
	}
	for _, alloc := range a.Allocations {
		fmt.Fprintf(&b, "  %s (%s): %s\n", alloc.Symbol, alloc.Market, alloc.Fraction)
	}
	fmt.Fprintf(&b, "Notifications: %t", a.Notify)
	return b.String()
}

func validateBudget(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateFraction(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("must be greater than 0 and at most 1")
	}
	return nil
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}
