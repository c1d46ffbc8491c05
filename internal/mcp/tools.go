package mcp

import "github.com/mark3labs/mcp-go/mcp"

var addToolDef = mcp.NewTool("log_add",
	mcp.WithDescription("Add a note at a position in the video. The log stays ordered by timestamp."),
	mcp.WithString("at",
		mcp.Required(),
		mcp.Description(`Position as "mm:ss", "h:mm:ss" or plain seconds`),
	),
	mcp.WithString("text",
		mcp.Required(),
		mcp.Description("Note text; surrounding whitespace is trimmed"),
	),
)

var updateToolDef = mcp.NewTool("log_update",
	mcp.WithDescription("Replace the text of a note. The timestamp is kept."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID")),
	mcp.WithString("text", mcp.Required(), mcp.Description("New note text")),
)

var deleteToolDef = mcp.NewTool("log_delete",
	mcp.WithDescription("Delete one note by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Entry ID")),
)

var listToolDef = mcp.NewTool("log_list",
	mcp.WithDescription("List notes in timestamp order."),
	mcp.WithBoolean("include_text", mcp.Description("Return full text instead of a one-line preview (default false)")),
)

var importToolDef = mcp.NewTool("log_import",
	mcp.WithDescription("Import a block of \"[mm:ss] text\" lines. Unrecognised lines are skipped; importing nothing is an error."),
	mcp.WithString("text", mcp.Description("Block of timestamped lines")),
	mcp.WithString("file", mcp.Description("Name of a .md file in the exports directory, instead of text")),
)

var exportToolDef = mcp.NewTool("log_export",
	mcp.WithDescription("Export the log as rewrite-ready text, optionally writing a Markdown file to the exports directory."),
	mcp.WithString("file", mcp.Description(`File name ending in .md; "" picks a default name`)),
	mcp.WithBoolean("to_file", mcp.Description("Write a file (default false)")),
)

var clearToolDef = mcp.NewTool("log_clear",
	mcp.WithDescription("Delete every note."),
	mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
)

var videoSetToolDef = mcp.NewTool("video_set",
	mcp.WithDescription("Set the source video from a URL or bare video ID."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Watch, short, embed or shorts URL, or an 11-character ID")),
)

var videoGetToolDef = mcp.NewTool("video_get",
	mcp.WithDescription("Show the stored source URL and the video ID it resolves to."),
)
