package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/gwillem/so101-gamepad/pkg/gamepad"
	"github.com/gwillem/so101-gamepad/pkg/robot"
	"github.com/gwillem/so101-gamepad/pkg/teleop"
)

type InfoCommand struct{}

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
)

func (c *InfoCommand) Execute(args []string) error {
	ctx := context.Background()

	fmt.Println(headerStyle.Render("Serial ports"))

	ports, err := robot.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		warnColor.Println("  none")
	}
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("SO-101 arms"))
	arms, err := robot.FindArms(ctx)
	if err != nil {
		return err
	}
	if len(arms) == 0 {
		warnColor.Println("  none found")
	}
	for _, a := range arms {
		okColor.Printf("  %s\n", a.Port)
		positions, err := robot.PeekPositions(ctx, a.Port)
		if err != nil {
			warnColor.Printf("  %v\n", err)
			continue
		}
		fmt.Println(positionTable(positions))
	}

	fmt.Println()
	fmt.Println(headerStyle.Render("Gamepads"))
	pads := gamepad.Find()
	if len(pads) == 0 {
		warnColor.Println("  none found")
	}
	for _, p := range pads {
		line := fmt.Sprintf("  %d: %s (%d axes, %d buttons)", p.Index, p.Name, p.Axes, p.Buttons)
		if p.Axes < gamepad.MinAxes || p.Buttons < gamepad.MinButtons {
			warnColor.Println(line + " - not enough controls")
			continue
		}
		okColor.Println(line)
	}
	return nil
}

func positionTable(positions map[robot.MotorName]int) string {
	rows := make([][]string, 0, len(positions))
	for _, name := range robot.AllMotors() {
		pos, ok := positions[name]
		if !ok {
			rows = append(rows, []string{string(name), "-", ""})
			continue
		}
		note := ""
		if name == robot.Gripper {
			note = teleop.ModeFromPosition(pos).String()
		}
		rows = append(rows, []string{string(name), fmt.Sprint(pos), note})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Motor", "Raw", "").
		Rows(rows...).
		String()
}
