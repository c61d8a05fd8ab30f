package ui

import (
	"fmt"
	"strings"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/defaults"
)

const bannerArt = `
                     ____          __  _
 _   _____________  / / /__  _____/ /_(_)___  ____  _____
| | / / ___/ ___/ _ \/ / / _ \/ ___/ __/ / __ \/ __ \/ ___/
| |/ / /__/ /__/  __/ / /  __/ /__/ /_/ / /_/ / / / (__  )
|___/\___/\___/\___/_/_/\___/\___/\__/_/\____/_/ /_/____/
`

const bannerSeparator = "__________________________________________________________"

// PrintBanner prints the application banner with version info.
func PrintBanner() {
	w := output()
	for _, line := range strings.Split(bannerArt, "\n") {
		if line != "" {
			fmt.Fprintln(w, BannerStyle.Render(line))
		}
	}
	fmt.Fprintf(w, "%41s\n\n", VersionStyle.Render("v"+defaults.Version))
}

// PrintVersion prints the bare version line.
func PrintVersion() {
	fmt.Fprintf(output(), "%s %s\n", defaults.ToolName, defaults.Version)
}

// ConfigOption is one line of the run configuration banner.
type ConfigOption struct {
	Name  string
	Value string
}

// PrintConfigBanner prints the run settings. Empty values are skipped.
// Format:  :: Option              : Value
func PrintConfigBanner(options []ConfigOption) {
	w := output()
	for _, o := range options {
		if o.Value == "" {
			continue
		}
		fmt.Fprintf(w, " :: %-20s : %s\n", ConfigLabelStyle.Render(o.Name), ConfigValueStyle.Render(o.Value))
	}
	fmt.Fprintf(w, "%s\n\n", DividerStyle.Render(bannerSeparator))
}

// PrintDivider prints a stylized divider.
func PrintDivider() {
	fmt.Fprintln(output(), DividerStyle.Render(strings.Repeat("-", 75)))
}

// PrintSection prints a section header.
func PrintSection(title string) {
	w := output()
	fmt.Fprintln(w)
	fmt.Fprintln(w, SectionStyle.Render("> "+title))
	PrintDivider()
}

// PrintSuccess prints a success message.
func PrintSuccess(message string) {
	fmt.Fprintln(output(), SuccessStyle.Render("  [+] "+message))
}

// PrintError prints an error message.
func PrintError(message string) {
	fmt.Fprintln(output(), ErrorStyle.Render("  [X] "+message))
}

// PrintWarning prints a warning message.
func PrintWarning(message string) {
	fmt.Fprintln(output(), WarningStyle.Render("  [!] "+message))
}

// PrintInfo prints an info message.
func PrintInfo(message string) {
	fmt.Fprintf(output(), "  %s %s\n", InfoStyle.Render("*"), message)
}
