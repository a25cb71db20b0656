// Package interfaces defines the contracts between the components of the
// certificate registry system.
//
// The package contains three groups of declarations:
//
//   - Value types with validated constructors: AccountAddress, ContentID,
//     CiphertextHandle, CertID, RequestID, and the status enumerations.
//     These are shared across every component and never carry behavior
//     beyond parsing, formatting and comparison.
//
//   - Capability interfaces for external collaborators: ArtifactStore
//     (content-addressed blob storage), ConfidentialCompute (encrypt,
//     input-proof verification, access grants, decrypt), and Ledger
//     (append-only transition log with eventual finality). Each collaborator
//     is consumed strictly through its interface so backends are swappable
//     without touching registry logic.
//
//   - The registry surfaces: CertificateRegistry (validated write
//     transitions) and RegistrySnapshot (consistent finalized-state reads),
//     plus the sentinel error taxonomy both surface to callers.
package interfaces
