package mcpserver

// WorkspaceFormat describes the files the assistant reads, so MCP clients
// can tell users how to lay out their workspace.
const WorkspaceFormat = `# Wunjo Workspace Format

The assistant answers from two kinds of files under the workspace root.
Hidden files and directories (leading dot) are ignored.

## Notes

Markdown files ending in ` + "`" + `.md` + "`" + `. A note in ` + "`" + `notes/<folder>/` + "`" + ` belongs to that
folder; notes elsewhere have no folder.

` + "```" + `markdown
---
title: Sprint retro        # optional, else the first H1, else the file name
tags: [planning, {name: team, color: blue}]
pinned: true               # optional
created: 2025-06-10        # optional, else the file modification time
updated: 2025-06-12T17:00:00Z
---

Body text. Inline #tags are added to the frontmatter tags.
` + "```" + `

## Boards

YAML files ending in ` + "`" + `.yaml` + "`" + ` or ` + "`" + `.yml` + "`" + `. Each board has ordered lists, each list
ordered cards. Cards on a list whose name contains "done" or "completed" count
as finished.

` + "```" + `yaml
name: Work
created: 2025-05-01
lists:
  - name: To Do
    cards:
      - title: Write report
        tags: [urgent]
        created: 2025-06-10T09:00:00Z
  - name: Done
    cards:
      - title: Ship v1
        updated: 2025-06-12T17:00:00Z
` + "```" + `

## Timestamps

RFC 3339, ` + "`" + `2006-01-02 15:04[:05]` + "`" + ` or a bare date. A card without ` + "`" + `created` + "`" + `
inherits its list's, then its board's. Activity windows use ` + "`" + `updated` + "`" + ` when
present.
`
