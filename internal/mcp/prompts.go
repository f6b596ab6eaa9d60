package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("sketch_diagram",
		mcp.WithPromptDescription("Sketch a labelled box diagram of a system on the board"),
		mcp.WithArgument("subject",
			mcp.ArgumentDescription("What the diagram should show"),
			mcp.RequiredArgument(),
		),
	), s.handleSketchDiagramPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("tidy_board",
		mcp.WithPromptDescription("Review the board and remove stray or duplicate objects"),
	), s.handleTidyBoardPrompt)
}

func (s *Server) handleSketchDiagramPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	subject := req.Params.Arguments["subject"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Sketch a diagram of: %s", subject),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Sketch a diagram of "%s" on the whiteboard. Follow these steps:

1. Use list_objects to see what is already on the board
2. For each component, use add_shape with kind "rectangle" and then add_text with its name inside the box
3. Use add_shape with kind "line" to connect related components (x/y is the start, width/height the offset to the end)
4. Finish with fit_to_content so the whole diagram is visible

Leave x/y out when you don't care about exact placement; shapes are then placed in free space.`, subject),
				},
			},
		},
	}, nil
}

func (s *Server) handleTidyBoardPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Tidy the board",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: `Tidy the whiteboard:

1. Use list_objects to inspect every object with its bounds
2. Identify exact duplicates (same type and bounds) and empty text objects
3. Remove them in one call with delete_objects, passing comma-separated IDs
4. Report what was removed; the user can always undo`,
				},
			},
		},
	}, nil
}
