package mcpserver

// Instructions is sent to clients when they connect.
const Instructions = `recollect is a memory service for AI agents built on a knowledge graph.
Information is stored as episodes (content snippets), nodes (entities) and
facts (relationships between entities).

## Entity discovery

Before creating episodes with structured data, discover the available entity types:
1. Read resource entity://list to see every entity type
2. Read resource entity://<name> for the schema of one type
3. Read resource entity_instruction://<name> for usage guidance and examples

## Episodes

Text episodes are plain prose that the extractor turns into entities and facts:

    {"episode_body": "Alice reported that login fails with special characters", "format": "text"}

JSON episodes combine a narrative with declared entities:

    {
      "episode_body": {
        "narrative": "During our meeting Alice reported that users cannot log in.",
        "entities": [{"type": "Requirement", "name": "Special character logins", "project_name": "Auth",
                      "description": "Emails containing + must be accepted at login"}]
      },
      "format": "json"
    }

Declared entities are checked against their schema. Episodes for one group_id
are processed in order, one at a time; add_episode returns as soon as the
episode is queued.

## Tools

- add_episode: queue an episode (group_id defaults to "global")
- search_nodes / search_facts: semantic search, optionally centered on a node
- get_episodes: most recent episodes of a group
- get_entity_edge, delete_entity_edge, delete_episode: inspect and remove data
- clear_graph: delete everything; requires an authorization code and user consent

## Best practices

- Check the available entity types before creating structured episodes
- Include narrative context even when declaring entities
- Use specific names for people, never a generic "user"
- Give episodes descriptive names
- Search existing knowledge before adding new information
`
