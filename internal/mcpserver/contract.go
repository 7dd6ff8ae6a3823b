package mcpserver

// ContentModelContract describes how content nodes map to search records.
const ContentModelContract = `# indexsync Content Model

Every directory below the content root is a node. A node's fields live in
its ` + "`" + `contents.md` + "`" + ` file: YAML frontmatter followed by an optional Markdown body.

## Structure

` + "```" + `markdown
---
title: Getting started        # copied into the record
indexed: true                 # REQUIRED for the node to be published
_hidden: false                # OPTIONAL – hidden nodes are never published
_id: getting-started          # OPTIONAL – overrides the generated objectID
---

Body text in Markdown. It becomes the record's ` + "`" + `body` + "`" + ` field.
` + "```" + `

## Rules

1. **Only nodes with ` + "`" + `indexed: true` + "`" + ` are published.** The flag is not inherited:
   an unmarked parent never hides a marked child, and a marked parent never
   publishes its children.
2. **Hidden nodes** (` + "`" + `_hidden: true` + "`" + `) are skipped regardless of ` + "`" + `indexed` + "`" + `.
3. **Fields starting with ` + "`" + `_` + "`" + `** are system fields and never appear in records.
   The ` + "`" + `indexed` + "`" + ` flag is dropped from records too.
4. **Every record value is a string.** Booleans become ` + "`" + `true` + "`" + `/` + "`" + `false` + "`" + `, dates use
   ISO-8601, lists and maps are JSON-encoded.
5. **objectID** defaults to a stable UUID derived from the node path. Two nodes
   must never share an objectID; a publish aborts if they do.
6. **Directories starting with ` + "`" + `.` + "`" + `** are ignored.
7. A frontmatter ` + "`" + `body` + "`" + ` field and a non-empty Markdown body may not both be set.

## Publishing

A publish makes the remote index equal the set of indexed nodes: remote
objects without a local node are deleted, then every local record is
upserted. Use ` + "`" + `preview_changeset` + "`" + ` to inspect the changes first.
`
