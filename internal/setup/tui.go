package setup

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vadiminshakov/gavsync/config"
	"github.com/vadiminshakov/gavsync/internal/state"
)

// DefaultPath is where the wizard writes the configuration.
const DefaultPath = "config.gen.yaml"

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

// Answers collected by the wizard.
type Answers struct {
	RPCURL          string
	RegistryAddress string
	ContractName    string
	Source          string
	KeystoreDir     string
	WebAddr         string
	Ordering        string
	ReadRetries     string
	ReadTimeout     string
}

// RunTUI launches the terminal configuration wizard and writes the result to path.
func RunTUI(path string) error {
	a := Answers{
		RPCURL:       "ws://127.0.0.1:8546",
		ContractName: "gavcoin",
		Source:       config.SourceNode,
		WebAddr:      ":8080",
		Ordering:     state.OrderingMonotonic.String(),
		ReadRetries:  "0",
		ReadTimeout:  "30s",
	}
	var confirm bool

	// step 1: node
	screen("STEP 1: NODE")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Where is the node and which contract do we follow?\n"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Node RPC URL").
				Description("ws:// endpoints get push notifications, http:// falls back to polling").
				Value(&a.RPCURL).
				Validate(notEmpty("rpc url")),
			huh.NewInput().
				Title("Registry address").
				Description("Leave empty to ask the node").
				Value(&a.RegistryAddress).
				Validate(validateAddress),
			huh.NewInput().
				Title("Contract name").
				Value(&a.ContractName).
				Validate(notEmpty("contract name")),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 2: accounts
	screen("STEP 2: ACCOUNTS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Where do accounts come from?").
				Options(
					huh.NewOption("Node signer accounts", config.SourceNode),
					huh.NewOption("Keystore directory", config.SourceKeystore),
				).
				Value(&a.Source),
		),
	).Run()
	if err != nil {
		return err
	}
	if a.Source == config.SourceKeystore {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Keystore directory").
					Value(&a.KeystoreDir).
					Validate(notEmpty("keystore directory")),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// step 3: sync
	screen("STEP 3: SYNC")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Out-of-order passes").
				Options(
					huh.NewOption("Keep the newest block (monotonic)", state.OrderingMonotonic.String()),
					huh.NewOption("Last finished pass wins", state.OrderingLastWriterWins.String()),
				).
				Value(&a.Ordering),
			huh.NewInput().
				Title("Retries per read").
				Value(&a.ReadRetries).
				Validate(validateRetries),
			huh.NewInput().
				Title("Read timeout").
				Description("Duration string (e.g. 10s, 1m)").
				Value(&a.ReadTimeout).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
			huh.NewInput().
				Title("HTTP listen address").
				Value(&a.WebAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	screen("FINAL CONFIRMATION")
	summary := fmt.Sprintf(
		"Node: %s\nContract: %s\nAccounts: %s\nOrdering: %s\nHTTP: %s\n",
		a.RPCURL, a.ContractName, a.Source, a.Ordering, a.WebAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

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

	tmp, err := a.ConfigTmp()
	if err != nil {
		return err
	}
	if err := config.Write(path, tmp); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nRun: gavsync --config %s", path, path)))
	return nil
}

// ConfigTmp converts the answers into the YAML config form.
func (a Answers) ConfigTmp() (config.ConfigTmp, error) {
	retries, err := strconv.Atoi(strings.TrimSpace(a.ReadRetries))
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("incorrect retries: %w", err)
	}
	timeout, err := time.ParseDuration(strings.TrimSpace(a.ReadTimeout))
	if err != nil {
		return config.ConfigTmp{}, fmt.Errorf("incorrect read timeout: %w", err)
	}

	return config.ConfigTmp{
		RPCURL:          strings.TrimSpace(a.RPCURL),
		RegistryAddress: strings.TrimSpace(a.RegistryAddress),
		ContractName:    strings.TrimSpace(a.ContractName),
		Accounts: config.AccountsTmp{
			Source:      a.Source,
			KeystoreDir: strings.TrimSpace(a.KeystoreDir),
		},
		WebAddr: strings.TrimSpace(a.WebAddr),
		Sync: config.SyncTmp{
			Ordering:    a.Ordering,
			ReadRetries: retries,
			ReadTimeout: timeout,
		},
	}, nil
}

func screen(step string) {
	fmt.Print("\033[H\033[2J") // clear screen
	fmt.Println(headerStyle.Render("GAVSYNC CONFIG WIZARD"))
	fmt.Println(stepStyle.Render(step))
}

func notEmpty(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", what)
		}
		return nil
	}
}

func validateAddress(s string) error {
	if s = strings.TrimSpace(s); s != "" && !common.IsHexAddress(s) {
		return fmt.Errorf("must be a 0x-prefixed hex address")
	}
	return nil
}

func validateRetries(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n < 0 || n > 10 {
		return fmt.Errorf("must be between 0 and 10")
	}
	return nil
}
