package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// Interactive client for the trading ledger line protocol. Each input line
// is sent as one command; the response status line is printed, followed by
// any data lines a listing command announced.

func main() {
	host := flag.String("host", "127.0.0.1", "server host")
	port := flag.Int("port", 5432, "server port")
	flag.Parse()

	addr := fmt.Sprintf("%s:%d", *host, *port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Printf("Connected to %s\n", addr)
	printUsage()

	stdin := bufio.NewScanner(os.Stdin)
	server := bufio.NewReader(conn)

	for {
		fmt.Print("> ")
		if !stdin.Scan() {
			return
		}

		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "QUIT") || strings.EqualFold(line, "EXIT") {
			return
		}
		if strings.EqualFold(line, "HELP") {
			printUsage()
			continue
		}

		if _, err := fmt.Fprintln(conn, line); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
			return
		}

		status, err := server.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "connection closed: %v\n", err)
			return
		}
		status = strings.TrimRight(status, "\r\n")
		fmt.Println(status)

		// Listing commands announce how many data lines follow
		for i := 0; i < dataLineCount(line, status); i++ {
			data, err := server.ReadString('\n')
			if err != nil {
				fmt.Fprintf(os.Stderr, "connection closed: %v\n", err)
				return
			}
			fmt.Print(data)
		}

		command := strings.ToUpper(strings.Fields(line)[0])
		if command == "SHUTDOWN" {
			return
		}
	}
}

// dataLineCount returns how many extra lines follow the status line
func dataLineCount(request, status string) int {
	command := strings.ToUpper(strings.Fields(request)[0])
	if command != "LIST" && command != "LIST_USERS" {
		return 0
	}

	fields := strings.Fields(status)
	if len(fields) != 2 || fields[0] != "OK" {
		return 0
	}

	count, err := strconv.Atoi(fields[1])
	if err != nil || count < 0 {
		return 0
	}
	return count
}

func printUsage() {
	fmt.Println("Commands:")
	fmt.Println("  ADD_USER firstName lastName userName password balance")
	fmt.Println("  BUY symbol shareName quantity pricePerShare userId")
	fmt.Println("  SELL symbol quantity pricePerShare userId")
	fmt.Println("  LIST")
	fmt.Println("  LIST_USERS")
	fmt.Println("  GET_BALANCE userId")
	fmt.Println("  UPDATE_BALANCE userId newBalance")
	fmt.Println("  SHUTDOWN")
	fmt.Println("  QUIT")
}
