package mcpserver

// NoteFormatContract tells MCP clients how sift reads a note, so that notes
// they write are found by search, similarity and suggestions.
const NoteFormatContract = `# Sift Note Format Contract

A note is a UTF-8 Markdown file ending in .md, addressed by its slash-separated
path relative to the vault root. Hidden directories (".trash", ".git") are not
indexed.

## Layout

~~~markdown
---
id: 0b5c1f8e-4c1e-4a57-9d59-0f0a3a6c2d11
title: LRU eviction notes
tags: [caching, go]
created: 2025-03-04
---

# LRU eviction notes

Evict the least recently used entry once the cache is full. See [[ttl-expiry]]
and [[design/cache|the cache design]]. #performance
~~~

## Fields sift reads

- title: frontmatter "title", otherwise the first "# " heading. Title hits
  weigh five times body hits in ranking and feed title suggestions.
- tags: frontmatter "tags" (a list or "a, b") plus inline #tags. Matching tags
  add a ranking bonus; they drive the tag filter and tag suggestions.
- links: [[target]], [[target|alias]] and [[target#heading]] all link to
  "target" and appear in its backlinks.
- body: everything after the frontmatter. Used for ranking, snippets and the
  keywords behind similarity.
- id and created: reported with the note; create_note fills both.

Frontmatter is optional but must start on the first line when present.
Frontmatter keys are English; values and body may be in any language.

## Writing for retrieval

- Put the words people will search for in the title; title hits outweigh body hits.
- Long bodies are normalised by length, so split unrelated topics into separate notes.
- Similarity compares the most frequent non-stop-words of each note. A note that
  repeats its key terms is easier to relate to others.
- Tags are lowercase kebab-case (project-x, meeting-notes).
- Link targets are path stems without ".md" (folder/note).

## Tools

- create_note writes the frontmatter from title and tags; pass only the body as
  content. The file name is the slugified title.
- update_note replaces the whole file. Pass the checksum from read_note as
  if_match; a mismatch means someone else changed the note first.
- append_text and add_tags edit in place and keep the rest of the file.
- trash_note moves the note under .trash/, which removes it from every result.
- Reads are cached for a short time; every write through these tools
  invalidates the affected results immediately.
`
