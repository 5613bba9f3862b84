// Package tui 弹窗：选择模板，预览并编辑解析后的参数，然后发送
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/YangQing-Lin/hooky-cli/internal/i18n"
	"github.com/YangQing-Lin/hooky-cli/internal/pagecontext"
	"github.com/YangQing-Lin/hooky-cli/internal/params"
	"github.com/YangQing-Lin/hooky-cli/internal/quicksend"
	"github.com/YangQing-Lin/hooky-cli/internal/store"
	"github.com/YangQing-Lin/hooky-cli/internal/template"
	"github.com/YangQing-Lin/hooky-cli/internal/webhook"
)

const (
	modeList   = "list"
	modeParams = "params"
)

// sentMsg 发送完成
type sentMsg struct {
	result webhook.Result
}

// Model 弹窗模型
type Model struct {
	ctx        context.Context
	manager    *store.Manager
	dispatcher quicksend.Dispatcher
	page       pagecontext.Context

	templates []store.Template
	activeID  string
	cursor    int
	mode      string

	keys       []string
	inputs     []textinput.Model
	focusIndex int
	sending    bool

	message string
	err     error
	width   int
	height  int
}

// New 加载存储并创建弹窗模型，光标停在当前模板上
func New(ctx context.Context, manager *store.Manager, dispatcher quicksend.Dispatcher, page pagecontext.Context) (Model, error) {
	m := Model{
		ctx:        ctx,
		manager:    manager,
		dispatcher: dispatcher,
		page:       page,
		mode:       modeList,
	}
	s, err := m.refresh()
	if err != nil {
		return m, err
	}
	ApplyTheme(s.ThemeOrDefault())

	for i, tpl := range m.templates {
		if tpl.ID == m.activeID {
			m.cursor = i
		}
	}
	return m, nil
}

// Run 在当前终端运行弹窗，ctx 取消时退出
func Run(ctx context.Context, m Model) error {
	_, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) refresh() (*store.Store, error) {
	s, err := m.manager.Load(m.ctx)
	if err != nil {
		return nil, err
	}
	m.templates = s.Templates
	m.activeID = ""
	if s.ActiveTemplateID != nil {
		m.activeID = *s.ActiveTemplateID
	}
	if m.cursor >= len(m.templates) {
		m.cursor = 0
	}
	return s, nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case sentMsg:
		m.sending = false
		m.showResult(msg.result)

	case tea.KeyMsg:
		switch m.mode {
		case modeList:
			return m.handleListKeys(msg)
		case modeParams:
			if handled, next, cmd := m.handleParamKeys(msg); handled {
				return next, cmd
			}
			return m.updateInputs(msg)
		}
	}
	return m, nil
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.templates)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.templates) == 0 {
			return m, nil
		}
		tpl := m.templates[m.cursor]
		if !tpl.Configured() {
			m.err = errors.New(i18n.T("no_url"))
			m.message = ""
			return m, nil
		}
		m.openParams(tpl)
		return m, textinput.Blink
	case "a":
		if len(m.templates) == 0 {
			return m, nil
		}
		tpl := m.templates[m.cursor]
		if err := m.manager.SetActiveTemplateID(m.ctx, tpl.ID); err != nil {
			m.err = err
			return m, nil
		}
		m.activeID = tpl.ID
		m.err = nil
		m.message = i18n.T("template_activated", tpl.DisplayName(i18n.T("untitled")))
	case "r":
		if _, err := m.refresh(); err != nil {
			m.err = err
		}
	}
	return m, nil
}

// openParams 每个有 key 的参数一个输入框，初始值为按当前页面解析后的结果
func (m *Model) openParams(tpl store.Template) {
	vars := m.page.Vars()
	m.mode = modeParams
	m.keys = m.keys[:0]
	m.inputs = m.inputs[:0]
	m.focusIndex = 0
	m.message = ""
	m.err = nil

	for _, p := range tpl.Params {
		if p.Key == "" {
			continue
		}
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 0
		in.SetValue(template.Resolve(p.Value, vars))
		m.keys = append(m.keys, p.Key)
		m.inputs = append(m.inputs, in)
	}
	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
		m.inputs[0].PromptStyle = focusedStyle
		m.inputs[0].TextStyle = focusedStyle
	}
}

// 返回 (handled, model, cmd)
func (m Model) handleParamKeys(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeList
		m.message = ""
		m.err = nil
		return true, m, nil
	case "ctrl+c":
		return true, m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		if len(m.inputs) == 0 {
			return true, m, nil
		}
		if msg.String() == "up" || msg.String() == "shift+tab" {
			m.focusIndex--
		} else {
			m.focusIndex++
		}
		if m.focusIndex >= len(m.inputs) {
			m.focusIndex = 0
		} else if m.focusIndex < 0 {
			m.focusIndex = len(m.inputs) - 1
		}
		cmds := make([]tea.Cmd, len(m.inputs))
		for i := range m.inputs {
			if i == m.focusIndex {
				cmds[i] = m.inputs[i].Focus()
				m.inputs[i].PromptStyle = focusedStyle
				m.inputs[i].TextStyle = focusedStyle
			} else {
				m.inputs[i].Blur()
				m.inputs[i].PromptStyle = noStyle
				m.inputs[i].TextStyle = noStyle
			}
		}
		return true, m, tea.Batch(cmds...)
	case "ctrl+s", "enter":
		if m.sending {
			return true, m, nil
		}
		m.sending = true
		m.message = i18n.T("sending")
		m.err = nil
		return true, m, m.send()
	}
	return false, m, nil
}

func (m Model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focusIndex], cmd = m.inputs[m.focusIndex].Update(msg)
	return m, cmd
}

// EditedConfig 用输入框里的值作为参数；值已经解析过，发送时配合空上下文
func (m Model) EditedConfig() webhook.Config {
	tpl := m.templates[m.cursor]
	cfg := tpl.WebhookConfig()
	cfg.Params = make([]params.Param, len(m.keys))
	for i, key := range m.keys {
		cfg.Params[i] = params.Param{Key: key, Value: m.inputs[i].Value()}
	}
	return cfg
}

func (m Model) send() tea.Cmd {
	ctx, d, cfg := m.ctx, m.dispatcher, m.EditedConfig()
	return func() tea.Msg {
		vars := map[string]any{"page": map[string]any{}}
		return sentMsg{result: d.Dispatch(ctx, cfg, vars)}
	}
}

func (m *Model) showResult(r webhook.Result) {
	if r.OK {
		m.err = nil
		m.message = i18n.T("success_status", fmt.Sprint(r.Status))
		return
	}
	m.message = ""
	switch {
	case r.Error != "":
		m.err = errors.New(r.Error)
	case r.Status != 0:
		m.err = errors.New(i18n.T("failed_status", fmt.Sprint(r.Status)))
	default:
		m.err = errors.New(i18n.T("request_failed"))
	}
}

func (m Model) View() string {
	if m.mode == modeParams {
		return m.viewParams()
	}
	return m.viewList()
}

func (m Model) viewList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(i18n.T("popup_title")) + "\n\n")

	if len(m.templates) == 0 {
		b.WriteString(normalItemStyle.Render(i18n.T("popup_empty")) + "\n")
		b.WriteString("\n" + helpStyle.Render(i18n.T("no_templates")) + "\n")
		return b.String()
	}

	for i, tpl := range m.templates {
		marker := "  "
		if tpl.ID == m.activeID {
			marker = activeMarkerStyle.Render("● ")
		}
		line := fmt.Sprintf("%s%s %s", marker, MethodBadge(tpl.EffectiveMethod()), tpl.DisplayName(i18n.T("untitled")))
		if i == m.cursor {
			b.WriteString(selectedItemStyle.Render(line))
		} else {
			b.WriteString(normalItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.viewStatus())
	b.WriteString("\n" + helpStyle.Render(i18n.T("popup_help_list")) + "\n")
	return b.String()
}

func (m Model) viewParams() string {
	tpl := m.templates[m.cursor]
	var b strings.Builder
	b.WriteString(titleStyle.Render(tpl.DisplayName(i18n.T("untitled"))) + "\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, MethodBadge(tpl.EffectiveMethod()), " ", urlStyle.Render(tpl.URL)))
	b.WriteString("\n\n")

	for i, key := range m.keys {
		b.WriteString(paramKeyStyle.Render(key) + " " + m.inputs[i].View() + "\n")
	}

	b.WriteString(m.viewStatus())
	b.WriteString("\n" + helpStyle.Render(i18n.T("popup_help_form")) + "\n")
	return b.String()
}

func (m Model) viewStatus() string {
	switch {
	case m.err != nil:
		return "\n" + errorMessageStyle.Render("✗ "+m.err.Error()) + "\n"
	case m.message != "":
		return "\n" + successMessageStyle.Render(m.message) + "\n"
	}
	return ""
}
