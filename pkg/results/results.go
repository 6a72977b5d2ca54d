package results

type Reason string

const (
	// ReasonUnknown is the default reason. Occurrences of this reason in
	// the error journal indicate a bug, a failure to identify the reason
	// for an error somewhere.
	ReasonUnknown Reason = "unknown"

	// ReasonOperationFailed marks a failed filesystem or subprocess
	// operation.
	ReasonOperationFailed Reason = "operation_failed"
	// ReasonBadField marks a structural expectation on the SIP that did
	// not hold.
	ReasonBadField Reason = "bad_field"
	// ReasonMissingField marks a required SIP artifact that is absent.
	ReasonMissingField Reason = "missing_field"
	// ReasonMissingMARC marks a source METS with no MARC dmdSec.
	ReasonMissingMARC Reason = "missing_marc"
	// ReasonMissingImageGroup marks a package with no image filegroup.
	ReasonMissingImageGroup Reason = "missing_image_group"
	// ReasonUnknownSubclass marks a factory lookup miss.
	ReasonUnknownSubclass Reason = "unknown_subclass"
	// ReasonUnknownKey marks a configuration key defined in no layer.
	ReasonUnknownKey Reason = "unknown_key"
	// ReasonInvalidRepositoryPREMIS marks unusable provenance in the
	// repository METS.
	ReasonInvalidRepositoryPREMIS Reason = "invalid_repository_premis"
	// ReasonInvalidSourcePREMIS marks unusable provenance in the source
	// METS.
	ReasonInvalidSourcePREMIS Reason = "invalid_source_premis"
	// ReasonInvalidMETS marks an assembled METS that failed validation.
	ReasonInvalidMETS Reason = "invalid_mets"
)
