package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	daemonAddr = "http://127.0.0.1:7361"
	pidFile    = "pyquestd.pid"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "register":
		err = cmdRegister()
	case "login":
		err = cmdLogin()
	case "logout":
		err = cmdLogout()
	case "courses":
		err = cmdCourses(os.Args[2:])
	case "stats":
		err = cmdStats(os.Args[2:])
	case "leaderboard":
		err = cmdLeaderboard(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("pyquest %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`PyQuest - Learn Python by Doing

Usage:
  pyquest <command> [arguments]

Daemon Commands:
  start           Start the PyQuest daemon
  stop            Stop the PyQuest daemon
  status          Show daemon status
  logs            View daemon logs

Account Commands:
  register        Create an account
  login           Log in and store a session token
  logout          Log out and discard the session token

Learning Commands:
  courses list    List available courses
  courses info    Show course outline and your progress
  stats           Show your XP, streak, and achievements
  stats analytics Show learning analytics
  leaderboard     Show the XP leaderboard

Other:
  help            Show this help message
  version         Show version information

Examples:
  pyquest start                 # Start daemon
  pyquest login                 # Log in
  pyquest courses list          # Browse courses
  pyquest stats                 # Check your progress`)
}

// renderProgressBar creates a visual progress bar
func renderProgressBar(value float64, width int) string {
	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}
