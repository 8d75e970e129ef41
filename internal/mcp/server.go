package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/trellis-notes/trellis/internal/config"
	"github.com/trellis-notes/trellis/internal/logger"
	"github.com/trellis-notes/trellis/internal/search"
	"github.com/trellis-notes/trellis/internal/services"
)

type NotesServer struct {
	cfg       *config.Config
	services  *services.Services
	mcpServer *server.MCPServer
}

func NewNotesServer(cfg *config.Config, svc *services.Services) *NotesServer {
	ns := &NotesServer{
		cfg:      cfg,
		services: svc,
	}

	// Create MCP server
	ns.mcpServer = server.NewMCPServer(
		"trellis",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	ns.registerTools()
	ns.registerResources()

	return ns
}

func (s *NotesServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *NotesServer) registerTools() {
	searchTool := mcp.NewTool("search_notes",
		mcp.WithDescription("Search notes with the query language: plain words for full-text, #label, #label = value, ~relation.title = value, note.property comparisons, AND/OR/NOT grouping"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("The search query string"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10)"),
		),
		mcp.WithBoolean("fast_search",
			mcp.Description("Skip note content during matching (default: false)"),
		),
		mcp.WithBoolean("include_archived",
			mcp.Description("Include archived notes in results (default: false)"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchNotes)

	getNoteTool := mcp.NewTool("get_note",
		mcp.WithDescription("Get a specific note by its noteId, including attributes and placement"),
		mcp.WithString("note_id",
			mcp.Required(),
			mcp.Description("The noteId of the note to retrieve"),
		),
	)
	s.mcpServer.AddTool(getNoteTool, s.handleGetNote)

	addNoteTool := mcp.NewTool("add_note",
		mcp.WithDescription("Create a new note under a parent note"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The title of the note"),
		),
		mcp.WithString("content",
			mcp.Description("The content of the note"),
		),
		mcp.WithString("parent_note_id",
			mcp.Description("The noteId of the parent (default: root)"),
		),
	)
	s.mcpServer.AddTool(addNoteTool, s.handleAddNote)

	addLabelTool := mcp.NewTool("add_label",
		mcp.WithDescription("Attach a label to a note"),
		mcp.WithString("note_id",
			mcp.Required(),
			mcp.Description("The noteId to attach the label to"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The label name"),
		),
		mcp.WithString("value",
			mcp.Description("The label value (optional, labels can be value-less)"),
		),
		mcp.WithBoolean("inheritable",
			mcp.Description("Whether descendants inherit the label (default: false)"),
		),
	)
	s.mcpServer.AddTool(addLabelTool, s.handleAddLabel)

	addRelationTool := mcp.NewTool("add_relation",
		mcp.WithDescription("Attach a relation from one note to another"),
		mcp.WithString("note_id",
			mcp.Required(),
			mcp.Description("The noteId owning the relation"),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The relation name"),
		),
		mcp.WithString("target_note_id",
			mcp.Required(),
			mcp.Description("The noteId the relation points at"),
		),
	)
	s.mcpServer.AddTool(addRelationTool, s.handleAddRelation)

	moveNoteTool := mcp.NewTool("move_note",
		mcp.WithDescription("Move a note's branch under a new parent. Rejected if it would create a cycle."),
		mcp.WithString("branch_id",
			mcp.Required(),
			mcp.Description("The branchId to move"),
		),
		mcp.WithString("parent_note_id",
			mcp.Required(),
			mcp.Description("The noteId of the new parent"),
		),
	)
	s.mcpServer.AddTool(moveNoteTool, s.handleMoveNote)
}

func (s *NotesServer) registerResources() {
	statsResource := mcp.NewResource("notes://stats",
		"Notes Statistics",
		mcp.WithResourceDescription("Counts of notes, labels and relations"),
		mcp.WithMIMEType("application/json"),
	)
	s.mcpServer.AddResource(statsResource, s.handleStats)
}

// Tool handlers

func (s *NotesServer) handleSearchNotes(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: search_notes")

	query, err := request.RequireString("query")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'query': %w", err)
	}

	limit := request.GetInt("limit", 10)
	ctx := &search.Context{
		FastSearch:           request.GetBool("fast_search", false),
		IncludeArchivedNotes: request.GetBool("include_archived", false),
	}

	results, err := s.services.Search.Search(query, ctx)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(results) > limit {
		results = results[:limit]
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No notes found matching your query."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d notes:\n\n", len(results))
	for i, res := range results {
		note := s.services.Store.GetNote(res.NoteID)
		if note == nil {
			continue
		}
		fmt.Fprintf(&sb, "%d. [%s] %s (score: %.1f)\n", i+1, res.NoteID, note.Title, res.Score)
		if path := s.services.Store.PathTitle(res.NoteID); path != "" {
			fmt.Fprintf(&sb, "   Path: %s\n", path)
		}
		for _, snippet := range res.Snippets {
			fmt.Fprintf(&sb, "   %s\n", snippet)
		}
		sb.WriteString("\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func (s *NotesServer) handleGetNote(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: get_note")

	noteID, err := request.RequireString("note_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'note_id': %w", err)
	}

	note, err := s.services.Notes.GetByID(noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Note ID: %s\nTitle: %s\nType: %s", note.NoteID, note.Title, note.Type)
	if path := s.services.Store.PathTitle(noteID); path != "" {
		fmt.Fprintf(&sb, "\nPath: %s", path)
	}

	attrs := s.services.Store.Attributes(noteID)
	if len(attrs) > 0 {
		sb.WriteString("\nAttributes:")
		for _, attr := range attrs {
			if attr.Value != "" {
				fmt.Fprintf(&sb, "\n  %s %s = %s", attr.Type, attr.Name, attr.Value)
			} else {
				fmt.Fprintf(&sb, "\n  %s %s", attr.Type, attr.Name)
			}
		}
	}

	fmt.Fprintf(&sb, "\nCreated: %s\nModified: %s\n\nContent:\n%s",
		note.DateCreated, note.DateModified, note.Content)

	return mcp.NewToolResultText(sb.String()), nil
}

func (s *NotesServer) handleAddNote(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: add_note")

	title, err := request.RequireString("title")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'title': %w", err)
	}

	content := request.GetString("content", "")
	parentNoteID := request.GetString("parent_note_id", "")

	note, err := s.services.Notes.Create(parentNoteID, title, "", "", content)
	if err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	result := fmt.Sprintf("Note created successfully with ID: %s\nTitle: %s", note.NoteID, note.Title)
	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleAddLabel(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: add_label")

	noteID, err := request.RequireString("note_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'note_id': %w", err)
	}
	name, err := request.RequireString("name")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'name': %w", err)
	}

	value := request.GetString("value", "")
	inheritable := request.GetBool("inheritable", false)

	attr, err := s.services.Attributes.AddLabel(noteID, name, value, inheritable)
	if err != nil {
		return nil, fmt.Errorf("failed to add label: %w", err)
	}

	result := fmt.Sprintf("Label #%s added to note %s (attributeId: %s)", attr.Name, noteID, attr.AttributeID)
	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleAddRelation(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: add_relation")

	noteID, err := request.RequireString("note_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'note_id': %w", err)
	}
	name, err := request.RequireString("name")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'name': %w", err)
	}
	targetNoteID, err := request.RequireString("target_note_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'target_note_id': %w", err)
	}

	attr, err := s.services.Attributes.AddRelation(noteID, name, targetNoteID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to add relation: %w", err)
	}

	result := fmt.Sprintf("Relation ~%s added from %s to %s (attributeId: %s)", attr.Name, noteID, targetNoteID, attr.AttributeID)
	return mcp.NewToolResultText(result), nil
}

func (s *NotesServer) handleMoveNote(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger.Debug("MCP tool call: move_note")

	branchID, err := request.RequireString("branch_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'branch_id': %w", err)
	}
	parentNoteID, err := request.RequireString("parent_note_id")
	if err != nil {
		return nil, fmt.Errorf("missing required parameter 'parent_note_id': %w", err)
	}

	if err := s.services.Tree.Move(branchID, parentNoteID); err != nil {
		return nil, fmt.Errorf("failed to move note: %w", err)
	}

	result := fmt.Sprintf("Branch %s moved under %s", branchID, parentNoteID)
	return mcp.NewToolResultText(result), nil
}

// Resource handlers

func (s *NotesServer) handleStats(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	notes := s.services.Store.Notes()

	labels := 0
	relations := 0
	for _, note := range notes {
		labels += s.services.Store.LabelCount(note.NoteID)
		relations += s.services.Store.RelationCount(note.NoteID)
	}

	stats := map[string]interface{}{
		"noteCount":     len(notes),
		"labelCount":    labels,
		"relationCount": relations,
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// ServeStdio runs the MCP server over stdin/stdout until the client
// disconnects.
func (s *NotesServer) ServeStdio() error {
	logger.Info("Starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}
