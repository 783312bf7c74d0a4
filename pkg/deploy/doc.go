/*
Package deploy renders the docker-compose.yml descriptor for a protocol
container and scaffolds an install directory's on-disk layout (§6).

# Directory layout

PrepareDirectoryTree creates the persisted-state tree under an install
directory:

	config/           config.json, private_key.txt (0600), public_key.txt, short_id.txt, sni.txt
	users/<uid>/      config.json, connection.link, qr.png (owned by pkg/userdir)
	logs/             access.log, error.log, health_check.log
	checkpoints/      <operation-id>.json (owned by pkg/batch)
	backups/          snapshots as tar.gz
	docker-compose.yml

WriteProtocolConfig writes the config/ files; pkg/userdir owns users/;
pkg/batch owns checkpoints/; pkg/logs reads logs/.

# Compose rendering

RenderCompose builds a single-service docker-compose.yml for the chosen
VPN protocol container, resolving a default image per protocol
(DefaultImage) when ComposeSpec.Image is empty. WriteComposeFile renders
and writes it directly into an install directory.

# See also

  - pkg/lifecycle for the install/uninstall orchestration that calls this
    package
  - SPEC_FULL.md §6 for the exact persisted-state layout
*/
package deploy
