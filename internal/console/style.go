package console

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

func (p *Prompter) title(s string) {
	p.Println(titleStyle.Render(s))
}

func (p *Prompter) success(s string) {
	p.Println(successStyle.Render(s))
}

func (p *Prompter) failure(s string) {
	p.Println(errorStyle.Render(s))
}
