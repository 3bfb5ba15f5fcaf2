package model

// DescriptorType is the AEM descriptor_type field (IEEE 1722.1-2013
// clause 7.2).
type DescriptorType uint16

const (
	DescriptorEntity        DescriptorType = 0x0000
	DescriptorConfiguration DescriptorType = 0x0001
	DescriptorAudioUnit     DescriptorType = 0x0002
	DescriptorStreamInput   DescriptorType = 0x0005
	DescriptorStreamOutput  DescriptorType = 0x0006
	DescriptorAVBInterface  DescriptorType = 0x0009
	DescriptorClockSource   DescriptorType = 0x000A
	DescriptorLocale        DescriptorType = 0x000C
	DescriptorStrings       DescriptorType = 0x000D
	DescriptorStreamPortInput  DescriptorType = 0x000E
	DescriptorStreamPortOutput DescriptorType = 0x000F
	DescriptorControl         DescriptorType = 0x001A
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorEntity:
		return "ENTITY"
	case DescriptorConfiguration:
		return "CONFIGURATION"
	case DescriptorAudioUnit:
		return "AUDIO_UNIT"
	case DescriptorStreamInput:
		return "STREAM_INPUT"
	case DescriptorStreamOutput:
		return "STREAM_OUTPUT"
	case DescriptorAVBInterface:
		return "AVB_INTERFACE"
	case DescriptorClockSource:
		return "CLOCK_SOURCE"
	case DescriptorLocale:
		return "LOCALE"
	case DescriptorStrings:
		return "STRINGS"
	case DescriptorStreamPortInput:
		return "STREAM_PORT_INPUT"
	case DescriptorStreamPortOutput:
		return "STREAM_PORT_OUTPUT"
	case DescriptorControl:
		return "CONTROL"
	default:
		return "UNKNOWN"
	}
}

// Key identifies a descriptor within a configuration: (type, index).
type Key struct {
	Type  DescriptorType
	Index uint16
}

// Descriptor is the closed tagged-variant interface every AEM descriptor
// value implements. Per spec section 9's design note, this replaces a
// virtual-class hierarchy with a sum type: exhaustive handling at
// enumeration points is a type switch over the concrete variants below.
type Descriptor interface {
	Type() DescriptorType
	Index() uint16
}

// EntityDescriptor is descriptor (ENTITY, 0).
type EntityDescriptor struct {
	EntityID               EntityID
	EntityModelID          uint64
	EntityCapabilities     EntityCapabilityFlags
	TalkerStreamSources     uint16
	TalkerCapabilities      TalkerCapabilityFlags
	ListenerStreamSinks     uint16
	ListenerCapabilities    ListenerCapabilityFlags
	ControllerCapabilities  uint32
	AvailableIndex          uint32
	AssociationID           uint64
	EntityName              string
	VendorNameString        uint16
	ModelNameString         uint16
	FirmwareVersion         string
	GroupName               string
	SerialNumber            string
	ConfigurationsCount     uint16
	CurrentConfiguration    uint16
}

func (EntityDescriptor) Type() DescriptorType { return DescriptorEntity }
func (EntityDescriptor) Index() uint16         { return 0 }

// DescriptorCount is one (type, count) pair from a CONFIGURATION
// descriptor's descriptor_counts array (spec section 4.6 step 2).
type DescriptorCount struct {
	Type  DescriptorType
	Count uint16
}

// ConfigurationDescriptor is descriptor (CONFIGURATION, index).
type ConfigurationDescriptor struct {
	IndexValue        uint16
	ObjectName        string
	LocalizedDescription uint16
	DescriptorCounts  []DescriptorCount
}

func (c ConfigurationDescriptor) Type() DescriptorType { return DescriptorConfiguration }
func (c ConfigurationDescriptor) Index() uint16         { return c.IndexValue }

// StreamFlags decodes the ten named booleans of a STREAM_INPUT/OUTPUT
// descriptor's stream_flags word (spec section 4.2).
type StreamFlags struct {
	ClockSyncSource       bool
	ClassA                bool
	ClassB                bool
	SupportsEncrypted     bool
	PrimaryBackupSupported bool
	PrimaryBackupValid     bool
	SecondaryBackupSupported bool
	SecondaryBackupValid     bool
	TertiaryBackupSupported  bool
	TertiaryBackupValid      bool
}

// TalkerPair is a (entity_id, unique_id) reference to a talker stream
// source, used for the backup/backedup talker fields.
type TalkerPair struct {
	EntityID EntityID
	UniqueID uint16
}

// StreamDescriptor is descriptor (STREAM_INPUT or STREAM_OUTPUT, index).
type StreamDescriptor struct {
	TypeValue            DescriptorType // DescriptorStreamInput or DescriptorStreamOutput
	IndexValue           uint16
	ObjectName           string
	LocalizedDescription uint16
	ClockDomainIndex     uint16
	Flags                StreamFlags
	CurrentFormat        uint64
	CurrentFormatName    string
	StreamFormats        []uint64
	BackupTalkers        [3]TalkerPair
	BackedupTalker       TalkerPair
	AVBInterfaceIndex    uint16
	BufferLength         uint32
}

func (s StreamDescriptor) Type() DescriptorType { return s.TypeValue }
func (s StreamDescriptor) Index() uint16         { return s.IndexValue }

// AudioUnitDescriptor is descriptor (AUDIO_UNIT, index).
type AudioUnitDescriptor struct {
	IndexValue            uint16
	ObjectName            string
	LocalizedDescription  uint16
	ClockDomainIndex      uint16
	NumberOfStreamInputPorts  uint16
	BaseStreamInputPort       uint16
	NumberOfStreamOutputPorts uint16
	BaseStreamOutputPort      uint16
	CurrentSamplingRate       uint32
	SamplingRates             []uint32
}

func (a AudioUnitDescriptor) Type() DescriptorType { return DescriptorAudioUnit }
func (a AudioUnitDescriptor) Index() uint16         { return a.IndexValue }

// StreamPortDescriptor is descriptor (STREAM_PORT_INPUT or
// STREAM_PORT_OUTPUT, index).
type StreamPortDescriptor struct {
	TypeValue          DescriptorType
	IndexValue         uint16
	ClockDomainIndex   uint16
	NumberOfClusters   uint16
	BaseCluster        uint16
	NumberOfMaps       uint16
	BaseMap            uint16
}

func (s StreamPortDescriptor) Type() DescriptorType { return s.TypeValue }
func (s StreamPortDescriptor) Index() uint16         { return s.IndexValue }

// AVBInterfaceDescriptor is descriptor (AVB_INTERFACE, index).
type AVBInterfaceDescriptor struct {
	IndexValue           uint16
	ObjectName           string
	MACAddress           MAC
	InterfaceFlags       uint16
	ClockIdentity        uint64
	Priority1            uint8
	ClockClass           uint8
	OffsetScaledLogVariance uint16
	ClockAccuracy        uint8
	Priority2            uint8
	DomainNumber         uint8
	LogSyncInterval      int8
	LogAnnounceInterval  int8
	LogPDelayInterval    int8
	PortNumber           uint16
}

func (a AVBInterfaceDescriptor) Type() DescriptorType { return DescriptorAVBInterface }
func (a AVBInterfaceDescriptor) Index() uint16         { return a.IndexValue }

// ClockSourceDescriptor is descriptor (CLOCK_SOURCE, index).
type ClockSourceDescriptor struct {
	IndexValue          uint16
	ObjectName          string
	ClockSourceFlags    uint16
	ClockSourceType     uint16
	ClockSourceIdentifier uint64
	ClockSourceLocationType  DescriptorType
	ClockSourceLocationIndex uint16
}

func (c ClockSourceDescriptor) Type() DescriptorType { return DescriptorClockSource }
func (c ClockSourceDescriptor) Index() uint16         { return c.IndexValue }

// LocaleDescriptor is descriptor (LOCALE, index).
type LocaleDescriptor struct {
	IndexValue        uint16
	LocaleIdentifier  string
	NumberOfStringDescriptors uint16
	BaseStringDescriptorIndex uint16
}

func (l LocaleDescriptor) Type() DescriptorType { return DescriptorLocale }
func (l LocaleDescriptor) Index() uint16         { return l.IndexValue }

// StringsDescriptor is descriptor (STRINGS, index): seven localized
// 64-byte string fields per IEEE 1722.1-2013 clause 7.2.10.
type StringsDescriptor struct {
	IndexValue uint16
	Strings    [7]string
}

func (s StringsDescriptor) Type() DescriptorType { return DescriptorStrings }
func (s StringsDescriptor) Index() uint16         { return s.IndexValue }
