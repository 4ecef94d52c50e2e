package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/so101-gamepad/pkg/config"
	"github.com/gwillem/so101-gamepad/pkg/gamepad"
	"github.com/gwillem/so101-gamepad/pkg/robot"
	"github.com/gwillem/so101-gamepad/pkg/teleop"
)

type TeleoperateCommand struct {
	Port       string `long:"port" description:"Follower serial port (overrides the config file)"`
	Plain      bool   `long:"plain" description:"Print log lines instead of the dashboard"`
	Calibrated bool   `long:"calibrated" description:"Refuse to start if the follower is not calibrated"`
}

const (
	headerHeight = 3 // title + status + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Motor colors - distinct colors for each motor
var motorColors = map[robot.MotorName]string{
	robot.ShoulderPan:  "196", // red
	robot.ShoulderLift: "208", // orange
	robot.ElbowFlex:    "226", // yellow
	robot.WristFlex:    "46",  // green
	robot.WristRoll:    "51",  // cyan
	robot.Gripper:      "201", // magenta
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	openStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	closedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

const controlsHelp = "A: gripper  LS: wrist roll/flex  RS: elbow/shoulder lift  LT/RT: pan  B: exit"

type dashboard struct {
	ctrl     *teleop.Controller
	chart    *streamlinechart.Model
	width    int
	height   int
	logs     []string
	state    teleop.State
	haveData bool
	quitting bool
}

type stateMsg teleop.State
type logMsg string
type doneMsg struct{}

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		select {
		case s := <-ctrl.States():
			return stateMsg(s)
		case <-ctrl.Done():
			return doneMsg{}
		}
	}
}

func waitForLog(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		select {
		case l := <-ctrl.Logs():
			return logMsg(l)
		case <-ctrl.Done():
			return doneMsg{}
		}
	}
}

func (m *dashboard) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *dashboard) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func newDashboard(ctrl *teleop.Controller) dashboard {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(robot.MinPosition, robot.MaxPosition),
	)
	for _, name := range robot.AllMotors() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColors[name]))
		chart.SetDataSetStyles(string(name), runes.ThinLineStyle, style)
	}
	return dashboard{ctrl: ctrl, chart: &chart}
}

func (m dashboard) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl),
	)
}

func (m dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		s := teleop.State(msg)
		// Only redraw on change so the chart freezes while the arm is idle
		if !m.haveData || changed(m.state.Positions, s.Positions) {
			for name, pos := range s.Positions {
				m.chart.PushDataSet(string(name), float64(pos))
			}
			m.chart.DrawAll()
		}
		m.state, m.haveData = s, true
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.ctrl)

	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func changed(prev, next map[robot.MotorName]int) bool {
	for name, pos := range next {
		if p, ok := prev[name]; !ok || p != pos {
			return true
		}
	}
	return false
}

func (m dashboard) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("SO-101 Gamepad"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.ctrl.Hz()))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.statusLine())
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend(m.state.Positions))
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render(controlsHelp + "  q: quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m dashboard) statusLine() string {
	if !m.haveData {
		return statusStyle.Render("waiting for first tick...")
	}
	gripper := closedStyle.Render(m.state.Gripper.String())
	if m.state.Gripper == teleop.GripperOpen {
		gripper = openStyle.Render(m.state.Gripper.String())
	}
	return fmt.Sprintf("Gripper %s  %s", gripper,
		statusStyle.Render(fmt.Sprintf("tick %d  %s", m.state.Tick, m.state.Input)))
}

func renderLegend(positions map[robot.MotorName]int) string {
	var items []string
	for _, name := range robot.AllMotors() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(motorColors[name])).Bold(true)
		item := colorStyle.Render("━━") + " " + string(name)
		if pos, ok := positions[name]; ok {
			item += statusStyle.Render(fmt.Sprintf(" %d", pos))
		}
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg, found, err := config.LoadOrDefault(opts.Config)
	if err != nil {
		return err
	}
	if c.Port != "" {
		cfg.Follower.Port = c.Port
	}
	if found {
		fmt.Printf("Loaded configuration from %s\n", opts.Config)
	} else {
		fmt.Printf("No %s found, using %s\n", opts.Config, cfg.Follower.Port)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Println("Connecting to robot...")
	ctrl, err := teleop.Dial(ctx, cfg.Control, openGamepad(cfg.Gamepad), connectFollower(cfg.Follower, c.Calibrated))
	if err != nil {
		printHint(err)
		return err
	}
	defer ctrl.Close()

	if c.Plain {
		return runPlain(ctx, ctrl)
	}
	return runDashboard(ctx, cancel, ctrl)
}

func openGamepad(cfg gamepad.Config) teleop.InputOpener {
	return func() (teleop.InputDevice, error) {
		pad, err := gamepad.Open(cfg)
		if err != nil {
			return nil, err
		}
		info := pad.Info()
		fmt.Printf("Initialized gamepad %d: %s (%d axes, %d buttons)\n", info.Index, info.Name, info.Axes, info.Buttons)
		return pad, nil
	}
}

func connectFollower(cfg robot.ArmConfig, calibrated bool) teleop.ArmConnector {
	return func(ctx context.Context) (teleop.Arm, error) {
		arm, err := robot.Connect(ctx, cfg, calibrated)
		if err != nil {
			return nil, err
		}
		fmt.Printf("Robot connected on %s\n", cfg.Port)
		return arm, nil
	}
}

func runDashboard(ctx context.Context, cancel context.CancelFunc, ctrl *teleop.Controller) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- ctrl.Run(ctx)
	}()

	p := tea.NewProgram(newDashboard(ctrl), tea.WithAltScreen())
	_, uiErr := p.Run()
	cancel()

	err := <-errCh
	if uiErr != nil {
		return fmt.Errorf("run dashboard: %w", uiErr)
	}
	return finish(err)
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	gripperColor = color.New(color.FgMagenta)
	infoColor    = color.New(color.Faint)
)

func runPlain(ctx context.Context, ctrl *teleop.Controller) error {
	fmt.Println(controlsHelp)

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for {
			select {
			case line := <-ctrl.Logs():
				printLog(line)
			case <-ctrl.Done():
				for len(ctrl.Logs()) > 0 {
					printLog(<-ctrl.Logs())
				}
				return
			}
		}
	}()

	err := ctrl.Run(ctx)
	<-printed
	return finish(err)
}

func printLog(line string) {
	switch {
	case strings.Contains(line, "Error"):
		errorColor.Println(line)
	case strings.Contains(line, "Gripper"):
		gripperColor.Println(line)
	case strings.Contains(line, "button"):
		infoColor.Println(line)
	default:
		fmt.Println(line)
	}
}

// finish maps a Run result onto the command result: the exit button and a
// user interrupt both end cleanly.
func finish(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		fmt.Println("Disconnected")
		return nil
	}
	printHint(err)
	return err
}

func printHint(err error) {
	var hint string
	switch {
	case teleop.IsKind(err, teleop.KindDeviceInit):
		hint = "No gamepad detected. Please connect a gamepad and try again."
	case errors.Is(err, robot.ErrNotCalibrated):
		hint = "Follower not calibrated. Run 'so101-gamepad setup --record' first."
	case teleop.IsKind(err, teleop.KindConnect):
		hint = "Could not connect to the follower. Check the port or run 'so101-gamepad setup'."
	case teleop.IsKind(err, teleop.KindTransport):
		hint = "Lost communication with the follower. Check power and cabling."
	default:
		return
	}
	errorColor.Fprintln(os.Stderr, hint)
}

func printError(err error) {
	errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
}
