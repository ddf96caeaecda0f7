package surreal

// schemaSQL defines one table per record kind. Every record carries
// episode_id so a subgraph can be counted and deleted per episode.
const schemaSQL = `
    DEFINE TABLE IF NOT EXISTS ug_episode SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS episode_id ON ug_episode TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON ug_episode TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON ug_episode TYPE string;
    DEFINE FIELD IF NOT EXISTS source ON ug_episode TYPE string;
    DEFINE FIELD IF NOT EXISTS status ON ug_episode TYPE int;
    DEFINE FIELD IF NOT EXISTS segment_count ON ug_episode TYPE int;
    DEFINE FIELD IF NOT EXISTS unit_count ON ug_episode TYPE int;
    DEFINE FIELD IF NOT EXISTS coverage ON ug_episode TYPE number;
    DEFINE FIELD IF NOT EXISTS themes ON ug_episode TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON ug_episode TYPE int;
    DEFINE FIELD IF NOT EXISTS committed_at ON ug_episode TYPE int;

    DEFINE TABLE IF NOT EXISTS ug_unit SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS episode_id ON ug_unit TYPE string;
    DEFINE FIELD IF NOT EXISTS unit_id ON ug_unit TYPE string;
    DEFINE FIELD IF NOT EXISTS index ON ug_unit TYPE int;
    DEFINE FIELD IF NOT EXISTS text ON ug_unit TYPE string;
    DEFINE FIELD IF NOT EXISTS start_time ON ug_unit TYPE number;
    DEFINE FIELD IF NOT EXISTS original_start ON ug_unit TYPE number;
    DEFINE FIELD IF NOT EXISTS end_time ON ug_unit TYPE number;
    DEFINE FIELD IF NOT EXISTS summary ON ug_unit TYPE string;
    DEFINE FIELD IF NOT EXISTS unit_type ON ug_unit TYPE string;
    DEFINE FIELD IF NOT EXISTS themes ON ug_unit TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS speakers ON ug_unit TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS speaker_shares ON ug_unit TYPE array<number>;
    DEFINE FIELD IF NOT EXISTS segment_indices ON ug_unit TYPE array<int>;
    DEFINE FIELD IF NOT EXISTS vector ON ug_unit TYPE array<number>;
    DEFINE INDEX IF NOT EXISTS ug_unit_episode ON ug_unit FIELDS episode_id;

    DEFINE TABLE IF NOT EXISTS ug_entity SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS episode_id ON ug_entity TYPE string;
    DEFINE FIELD IF NOT EXISTS entity_id ON ug_entity TYPE string;
    DEFINE FIELD IF NOT EXISTS type ON ug_entity TYPE string;
    DEFINE FIELD IF NOT EXISTS value ON ug_entity TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON ug_entity TYPE string;
    DEFINE FIELD IF NOT EXISTS confidence ON ug_entity TYPE number;
    DEFINE FIELD IF NOT EXISTS mentions ON ug_entity TYPE int;
    DEFINE FIELD IF NOT EXISTS supporting_unit_ids ON ug_entity TYPE array<string>;
    DEFINE INDEX IF NOT EXISTS ug_entity_episode ON ug_entity FIELDS episode_id;

    DEFINE TABLE IF NOT EXISTS ug_relates TYPE RELATION IN ug_entity OUT ug_entity SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS episode_id ON ug_relates TYPE string;
    DEFINE FIELD IF NOT EXISTS key ON ug_relates TYPE string;
    DEFINE FIELD IF NOT EXISTS source_id ON ug_relates TYPE string;
    DEFINE FIELD IF NOT EXISTS target_id ON ug_relates TYPE string;
    DEFINE FIELD IF NOT EXISTS rel_type ON ug_relates TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON ug_relates TYPE string;
    DEFINE FIELD IF NOT EXISTS confidence ON ug_relates TYPE number;
    DEFINE FIELD IF NOT EXISTS supporting_unit_id ON ug_relates TYPE string;
    DEFINE INDEX IF NOT EXISTS ug_relates_key ON ug_relates FIELDS key UNIQUE;
    DEFINE INDEX IF NOT EXISTS ug_relates_episode ON ug_relates FIELDS episode_id;

    DEFINE TABLE IF NOT EXISTS ug_quote SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS episode_id ON ug_quote TYPE string;
    DEFINE FIELD IF NOT EXISTS item_id ON ug_quote TYPE string;
    DEFINE FIELD IF NOT EXISTS text ON ug_quote TYPE string;
    DEFINE FIELD IF NOT EXISTS unit_id ON ug_quote TYPE string;
    DEFINE FIELD IF NOT EXISTS speaker ON ug_quote TYPE string;
    DEFINE FIELD IF NOT EXISTS category ON ug_quote TYPE string;
    DEFINE FIELD IF NOT EXISTS confidence ON ug_quote TYPE number;
    DEFINE INDEX IF NOT EXISTS ug_quote_episode ON ug_quote FIELDS episode_id;

    DEFINE TABLE IF NOT EXISTS ug_insight SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS episode_id ON ug_insight TYPE string;
    DEFINE FIELD IF NOT EXISTS item_id ON ug_insight TYPE string;
    DEFINE FIELD IF NOT EXISTS text ON ug_insight TYPE string;
    DEFINE FIELD IF NOT EXISTS unit_id ON ug_insight TYPE string;
    DEFINE FIELD IF NOT EXISTS speaker ON ug_insight TYPE string;
    DEFINE FIELD IF NOT EXISTS category ON ug_insight TYPE string;
    DEFINE FIELD IF NOT EXISTS confidence ON ug_insight TYPE number;
    DEFINE INDEX IF NOT EXISTS ug_insight_episode ON ug_insight FIELDS episode_id;
`

// subgraphTables lists the tables holding an episode's records, root last.
var subgraphTables = []string{"ug_relates", "ug_quote", "ug_insight", "ug_entity", "ug_unit", "ug_episode"}
