package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config string `short:"c" long:"config" default:"lerobot-gamepad.json" description:"Configuration file"`

	Setup       SetupCommand       `command:"setup" description:"Find the follower arm and gamepad and save the configuration"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Control the follower arm with the gamepad (default)"`
	Info        InfoCommand        `command:"info" description:"Show connected arms, joint positions and gamepads"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "SO-101 gamepad teleoperation"
	parser.SubcommandsOptional = true

	_, err := parser.Parse()
	if err == nil && parser.Active == nil {
		// No command given: run teleoperation with the configured defaults.
		err = opts.Teleoperate.Execute(nil)
		if err != nil {
			printError(err)
		}
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
