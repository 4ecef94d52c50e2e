package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"

	"github.com/gwillem/so101-gamepad/pkg/config"
	"github.com/gwillem/so101-gamepad/pkg/gamepad"
	"github.com/gwillem/so101-gamepad/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type SetupCommand struct {
	Calibration string `long:"calibration" description:"Import a LeRobot calibration JSON file for the follower"`
	Record      bool   `long:"record" description:"Record the follower's range of motion without asking"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("SO-101 Gamepad Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	// Keep tuned control settings from an earlier setup
	cfg, _, err := config.LoadOrDefault(opts.Config)
	if err != nil {
		return err
	}

	arm, err := chooseFollower()
	if err != nil {
		return err
	}
	cfg.Follower.Port = arm.Port

	fmt.Println()
	index, err := chooseGamepad()
	if err != nil {
		return err
	}
	cfg.Gamepad.Index = index

	fmt.Println()
	if err := c.calibrate(&cfg.Follower, arm); err != nil {
		return err
	}

	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start teleoperation with: " + headerStyle.Render("so101-gamepad teleoperate"))
	return nil
}

func chooseFollower() (robot.FoundArm, error) {
	fmt.Println("Scanning for robot arms...")

	arms, err := robot.FindArms(context.Background())
	if err != nil {
		return robot.FoundArm{}, err
	}
	for _, a := range arms {
		fmt.Printf("  Found SO-101 arm on %s\n", a.Port)
	}

	switch len(arms) {
	case 0:
		return robot.FoundArm{}, errors.New("no SO-101 arm found; make sure the arm is connected and powered on")
	case 1:
		return arms[0], nil
	}

	fmt.Printf("Found %d arms. Let's identify the follower...\n", len(arms))
	for _, a := range arms {
		if err := wiggle(a); err != nil {
			fmt.Printf("  Error wiggling %s: %v\n", a.Port, err)
			continue
		}

		var yes bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Is the arm on %s the follower?", a.Port)).
					Description("The arm that just wiggled").
					Value(&yes),
			),
		)
		if err := form.Run(); err != nil {
			return robot.FoundArm{}, err
		}
		if yes {
			return a, nil
		}
	}
	return robot.FoundArm{}, errors.New("follower arm not identified")
}

// wiggle moves shoulder_pan slightly so the user can see which arm is on
// the port.
func wiggle(a robot.FoundArm) error {
	bus, err := robot.OpenBus(a.Port)
	if err != nil {
		return err
	}
	defer bus.Close()

	ctx := context.Background()
	servo := feetech.NewServo(bus, robot.DefaultID(robot.ShoulderPan), foundServo(a.Servos, robot.DefaultID(robot.ShoulderPan)).Model)

	originalPos, err := servo.Position(ctx)
	if err != nil {
		return fmt.Errorf("read position: %w", err)
	}
	if err := servo.Enable(ctx); err != nil {
		return fmt.Errorf("enable servo: %w", err)
	}
	defer servo.Disable(ctx)

	fmt.Printf("\n  Wiggling arm on %s...\n", a.Port)

	const wiggleAmount = 30
	const moveTime = 500 * time.Millisecond
	for _, target := range []int{originalPos + wiggleAmount, originalPos - wiggleAmount, originalPos} {
		servo.SetPositionWithTime(ctx, robot.ClampPosition(target), int(moveTime.Milliseconds()))
		time.Sleep(moveTime + 100*time.Millisecond)
	}
	return nil
}

// foundServo returns the scan result for an ID, or the zero value so the
// servo falls back to the default model.
func foundServo(servos []feetech.FoundServo, id int) feetech.FoundServo {
	for _, s := range servos {
		if s.ID == id {
			return s
		}
	}
	return feetech.FoundServo{ID: id}
}

func chooseGamepad() (int, error) {
	fmt.Println("Looking for gamepads...")

	var usable []gamepad.Info
	for _, info := range gamepad.Find() {
		fmt.Printf("  %d: %s (%d axes, %d buttons)\n", info.Index, info.Name, info.Axes, info.Buttons)
		if info.Axes >= gamepad.MinAxes && info.Buttons >= gamepad.MinButtons {
			usable = append(usable, info)
		}
	}

	switch len(usable) {
	case 0:
		fmt.Println(dimStyle.Render("  No usable gamepad found, defaulting to joystick 0."))
		return 0, nil
	case 1:
		return usable[0].Index, nil
	}

	options := make([]huh.Option[int], 0, len(usable))
	for _, info := range usable {
		options = append(options, huh.NewOption(fmt.Sprintf("%d: %s", info.Index, info.Name), info.Index))
	}
	var index int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Which gamepad controls the arm?").
				Options(options...).
				Value(&index),
		),
	)
	if err := form.Run(); err != nil {
		return 0, err
	}
	return index, nil
}

func (c *SetupCommand) calibrate(armConfig *robot.ArmConfig, arm robot.FoundArm) error {
	if c.Calibration != "" {
		cal, err := robot.LoadCalibration(c.Calibration)
		if err != nil {
			return err
		}
		armConfig.Calibration = cal
		fmt.Printf("Imported calibration from %s\n", c.Calibration)
		return nil
	}

	record := c.Record
	if !record {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Record the follower's range of motion now?").
					Description("Only needed for normalized reads; gamepad control uses raw positions").
					Value(&record),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
	}
	if !record {
		return nil
	}

	cal, err := recordRange(arm)
	if err != nil {
		return err
	}
	armConfig.Calibration = cal
	fmt.Println("Follower arm calibrated.")
	return nil
}

// recordRange disables torque and tracks min/max of every joint while the
// user moves the arm by hand.
func recordRange(arm robot.FoundArm) (robot.Calibration, error) {
	fmt.Println(subHeaderStyle.Render("━━━ Record range of motion ━━━"))
	fmt.Println("Move each joint to its minimum AND maximum positions.")
	fmt.Println()

	bus, err := robot.OpenBus(arm.Port)
	if err != nil {
		return nil, err
	}
	defer bus.Close()

	ctx := context.Background()
	motors := robot.AllMotors()
	servos := make(map[robot.MotorName]*feetech.Servo, len(motors))
	m := rangeModel{
		motors:  motors,
		servos:  servos,
		current: make(map[robot.MotorName]int),
		low:     make(map[robot.MotorName]int),
		high:    make(map[robot.MotorName]int),
	}
	for _, name := range motors {
		id := robot.DefaultID(name)
		servo := feetech.NewServo(bus, id, foundServo(arm.Servos, id).Model)
		servo.Disable(ctx)
		pos, err := servo.Position(ctx)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		servos[name] = servo
		m.current[name], m.low[name], m.high[name] = pos, pos, pos
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return nil, fmt.Errorf("run calibration: %w", err)
	}
	done := final.(rangeModel)

	cal := make(robot.Calibration, len(motors))
	for _, name := range motors {
		cal[name] = robot.MotorCalibration{
			ID:       robot.DefaultID(name),
			RangeMin: done.low[name],
			RangeMax: done.high[name],
		}
	}
	return cal, nil
}

type rangeModel struct {
	motors  []robot.MotorName
	servos  map[robot.MotorName]*feetech.Servo
	current map[robot.MotorName]int
	low     map[robot.MotorName]int
	high    map[robot.MotorName]int
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m rangeModel) Init() tea.Cmd {
	return tick()
}

func (m rangeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for _, name := range m.motors {
			pos, err := m.servos[name].Position(ctx)
			if err != nil {
				continue
			}
			m.current[name] = pos
			m.low[name] = min(m.low[name], pos)
			m.high[name] = max(m.high[name], pos)
		}
		return m, tick()
	}
	return m, nil
}

// minUsefulRange flags joints that were barely moved.
const minUsefulRange = 500

func (m rangeModel) View() string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	header := cell.Bold(true).Foreground(lipgloss.Color("12"))
	good := cell.Foreground(lipgloss.Color("10"))
	low := cell.Foreground(lipgloss.Color("9"))

	rows := make([][]string, 0, len(m.motors))
	for _, name := range m.motors {
		rows = append(rows, []string{
			string(name),
			fmt.Sprint(m.current[name]),
			fmt.Sprint(m.low[name]),
			fmt.Sprint(m.high[name]),
			fmt.Sprint(m.high[name] - m.low[name]),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col == 4 && row >= 0 && row < len(m.motors) {
				name := m.motors[row]
				if m.high[name]-m.low[name] > minUsefulRange {
					return good
				}
				return low
			}
			return cell
		})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done"))
	return sb.String()
}
