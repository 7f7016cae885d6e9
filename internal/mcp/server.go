// Package mcp exposes the forwarding state to AI assistants over the Model
// Context Protocol (JSON-RPC 2.0, one message per line).
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/vijay-prabhu/mailforward/internal/auth"
	"github.com/vijay-prabhu/mailforward/internal/config"
	"github.com/vijay-prabhu/mailforward/internal/database"
)

const protocolVersion = "2024-11-05"

// JSON-RPC error codes
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// TokenState reports the saved sign-in without network access
type TokenState interface {
	State() auth.State
	Record() *auth.TokenRecord
}

// Server implements an MCP server over a line-delimited stream
type Server struct {
	db       *database.DB
	tokens   TokenState
	forward  config.ForwardConfig
	version  string
	log      *zap.SugaredLogger
	handlers map[string]ToolHandler
}

// ToolHandler is a function that handles a tool call
type ToolHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      serverInfo             `json:"serverInfo"`
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type callToolResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// New creates a new MCP server
func New(db *database.DB, tokens TokenState, forward config.ForwardConfig, version string, log *zap.SugaredLogger) *Server {
	s := &Server{
		db:       db,
		tokens:   tokens,
		forward:  forward,
		version:  version,
		log:      log,
		handlers: make(map[string]ToolHandler),
	}
	s.registerHandlers()
	return s
}

// Serve answers requests read from in until EOF or ctx is done
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		response := s.handleMessage(ctx, line)
		if response == nil {
			continue
		}
		if err := encoder.Encode(response); err != nil {
			return fmt.Errorf("write error: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read error: %w", err)
	}
	return nil
}

func reply(id interface{}, result interface{}) *jsonRPCResponse {
	return &jsonRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

func fail(id interface{}, code int, msg string) *jsonRPCResponse {
	return &jsonRPCResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg}}
}

func (s *Server) handleMessage(ctx context.Context, msg []byte) *jsonRPCResponse {
	var req jsonRPCRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		return fail(nil, codeParseError, "Parse error")
	}
	s.log.Debugw("MCP request", "method", req.Method)

	switch req.Method {
	case "initialize":
		return reply(req.ID, initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: map[string]interface{}{
				"tools":     struct{}{},
				"resources": struct{}{},
			},
			ServerInfo: serverInfo{Name: "mailforward", Version: s.version},
		})
	case "initialized", "notifications/initialized":
		return nil
	case "ping":
		if err := s.db.Health(ctx); err != nil {
			return fail(req.ID, codeInternalError, err.Error())
		}
		return reply(req.ID, struct{}{})
	case "tools/list":
		return reply(req.ID, map[string]interface{}{"tools": ToolDefinitions})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "resources/list":
		return reply(req.ID, resourcesListResult{Resources: ResourceDefinitions})
	case "resources/read":
		return s.handleResourcesRead(ctx, req)
	default:
		return fail(req.ID, codeMethodNotFound, "Method not found")
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req jsonRPCRequest) *jsonRPCResponse {
	var params callToolParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return fail(req.ID, codeInvalidParams, "Invalid params")
	}

	handler, ok := s.handlers[params.Name]
	if !ok {
		return fail(req.ID, codeInvalidParams, fmt.Sprintf("Unknown tool: %s", params.Name))
	}

	result, err := handler(ctx, params.Arguments)
	if err != nil {
		return reply(req.ID, callToolResult{
			Content: []contentItem{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}

	text, ok := result.(string)
	if !ok {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fail(req.ID, codeInvalidParams, err.Error())
		}
		text = string(data)
	}
	return reply(req.ID, callToolResult{Content: []contentItem{{Type: "text", Text: text}}})
}

func (s *Server) handleResourcesRead(ctx context.Context, req jsonRPCRequest) *jsonRPCResponse {
	var params readResourceParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return fail(req.ID, codeInvalidParams, "Invalid params")
	}

	text, err := s.readResource(ctx, params.URI)
	if err != nil {
		return fail(req.ID, codeInvalidParams, err.Error())
	}

	return reply(req.ID, readResourceResult{
		Contents: []resourceContent{{URI: params.URI, MimeType: "text/plain", Text: text}},
	})
}
