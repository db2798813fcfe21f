package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/semcache-mcp/internal/config"
)

// MCPRequest represents a request to the MCP server
type MCPRequest struct {
	Jsonrpc string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// MCPResponse represents a response from the MCP server
type MCPResponse struct {
	Jsonrpc string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// ToolCallParams represents parameters for calling a tool
type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

func main() {
	fmt.Println("Semantic Cache MCP Test Client")
	fmt.Println("==============================")

	cfg := config.LoadConfig()
	fmt.Printf("Store: %s (db %d)\n", cfg.Redis.Addr, cfg.Redis.DB)
	fmt.Printf("Embedding provider: %s\n\n", cfg.Embedding.Provider)

	// Start the MCP server process
	cmd := exec.Command("./bin/semcache-mcp-server")
	cmd.Env = os.Environ()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		log.Fatalf("Failed to create stdin pipe: %v", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		log.Fatalf("Failed to create stdout pipe: %v", err)
	}

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to start MCP server: %v", err)
	}
	defer func() {
		if err := cmd.Process.Kill(); err != nil {
			log.Printf("Failed to kill MCP server process: %v", err)
		}
	}()

	fmt.Println("MCP Server started. Available commands:")
	fmt.Println()

	testCommands := []struct {
		name        string
		description string
		tool        string
		args        map[string]interface{}
	}{
		{
			name:        "cache_ml_query",
			description: "Cache a machine learning query with a summary response",
			tool:        "cache_query_response",
			args: map[string]interface{}{
				"query": "Tell me about machine learning",
				"response": map[string]interface{}{
					"summary":        "Machine learning is a subset of AI",
					"related_topics": []string{"AI", "Data Science"},
				},
			},
		},
		{
			name:        "retrieve_similar",
			description: "Retrieve cached responses similar to a rephrased ML query",
			tool:        "retrieve_similar_response",
			args: map[string]interface{}{
				"query": "Explain machine learning concepts",
				"top_k": 3,
			},
		},
		{
			name:        "retrieve_low_threshold",
			description: "Retrieve with a relaxed similarity threshold",
			tool:        "retrieve_similar_response",
			args: map[string]interface{}{
				"query":     "What is deep learning?",
				"top_k":     5,
				"threshold": 0.5,
			},
		},
		{
			name:        "cache_stats",
			description: "Show cache statistics",
			tool:        "get_cache_stats",
			args:        map[string]interface{}{},
		},
		{
			name:        "sweep_old_entries",
			description: "Remove entries older than one hour",
			tool:        "clear_old_cache",
			args: map[string]interface{}{
				"max_age_seconds": 3600,
			},
		},
	}

	for i, cmd := range testCommands {
		fmt.Printf("%d. %s - %s\n", i+1, cmd.name, cmd.description)
	}
	fmt.Println("0. Exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	serverReader := bufio.NewReader(stdout)
	requestID := 1

	for {
		fmt.Print("Enter command number (or 'help' for list): ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())

		if input == "0" || input == "exit" || input == "quit" {
			fmt.Println("Goodbye!")
			break
		}

		if input == "help" {
			for i, cmd := range testCommands {
				fmt.Printf("%d. %s - %s\n", i+1, cmd.name, cmd.description)
			}
			fmt.Println("0. Exit")
			continue
		}

		var cmdIndex int
		if _, err := fmt.Sscanf(input, "%d", &cmdIndex); err != nil {
			fmt.Println("Invalid input. Enter a number or 'help'.")
			continue
		}

		if cmdIndex < 1 || cmdIndex > len(testCommands) {
			fmt.Println("Invalid command number.")
			continue
		}

		selectedCmd := testCommands[cmdIndex-1]
		fmt.Printf("Executing: %s...\n", selectedCmd.description)

		request := MCPRequest{
			Jsonrpc: "2.0",
			ID:      requestID,
			Method:  "tools/call",
			Params: ToolCallParams{
				Name:      selectedCmd.tool,
				Arguments: selectedCmd.args,
			},
		}
		requestID++

		requestJSON, err := json.Marshal(request)
		if err != nil {
			fmt.Printf("Failed to encode request: %v\n", err)
			continue
		}

		if _, err := fmt.Fprintf(stdin, "%s\n", requestJSON); err != nil {
			fmt.Printf("Failed to send request: %v\n", err)
			continue
		}

		responseLine, err := serverReader.ReadString('\n')
		if err != nil {
			fmt.Printf("Failed to read response: %v\n", err)
			continue
		}

		var response MCPResponse
		if err := json.Unmarshal([]byte(responseLine), &response); err != nil {
			fmt.Printf("Failed to decode response: %v\n", err)
			continue
		}

		if response.Error != nil {
			fmt.Printf("Tool error: %v\n", response.Error)
			continue
		}

		pretty, err := json.MarshalIndent(response.Result, "", "  ")
		if err != nil {
			fmt.Printf("Result: %v\n", response.Result)
			continue
		}
		fmt.Printf("Result:\n%s\n\n", pretty)
	}
}
