package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/vronchetti/avdecc-lib/internal/model"
)

// AEM descriptors carry fixed-length ASCII string fields padded with NUL.
func readString(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

// ParseDescriptor decodes the descriptor-specific body of a
// READ_DESCRIPTOR_RESPONSE (the rest returned by
// ParseReadDescriptorResponseHeader) into a typed model.Descriptor, per
// spec section 9's "decode eagerly" design note. Unknown descriptor types
// are rejected rather than passed through, since the model has no variant
// to hold them.
func ParseDescriptor(descriptorType, descriptorIndex uint16, body []byte) (model.Descriptor, error) {
	switch model.DescriptorType(descriptorType) {
	case model.DescriptorEntity:
		return parseEntityDescriptor(body)
	case model.DescriptorConfiguration:
		return parseConfigurationDescriptor(descriptorIndex, body)
	case model.DescriptorAudioUnit:
		return parseAudioUnitDescriptor(descriptorIndex, body)
	case model.DescriptorStreamInput:
		return parseStreamDescriptor(model.DescriptorStreamInput, descriptorIndex, body)
	case model.DescriptorStreamOutput:
		return parseStreamDescriptor(model.DescriptorStreamOutput, descriptorIndex, body)
	case model.DescriptorStreamPortInput:
		return parseStreamPortDescriptor(model.DescriptorStreamPortInput, descriptorIndex, body)
	case model.DescriptorStreamPortOutput:
		return parseStreamPortDescriptor(model.DescriptorStreamPortOutput, descriptorIndex, body)
	case model.DescriptorAVBInterface:
		return parseAVBInterfaceDescriptor(descriptorIndex, body)
	case model.DescriptorClockSource:
		return parseClockSourceDescriptor(descriptorIndex, body)
	case model.DescriptorLocale:
		return parseLocaleDescriptor(descriptorIndex, body)
	case model.DescriptorStrings:
		return parseStringsDescriptor(descriptorIndex, body)
	default:
		return nil, malformed("unsupported descriptor_type 0x%04X", descriptorType)
	}
}

const entityDescriptorLen = 308

func parseEntityDescriptor(b []byte) (model.EntityDescriptor, error) {
	if len(b) < entityDescriptorLen {
		return model.EntityDescriptor{}, malformed("ENTITY descriptor too short: %d bytes", len(b))
	}
	return model.EntityDescriptor{
		EntityID:               model.EntityID(binary.BigEndian.Uint64(b[0:8])),
		EntityModelID:          binary.BigEndian.Uint64(b[8:16]),
		EntityCapabilities:     model.EntityCapabilityFlags(binary.BigEndian.Uint32(b[16:20])),
		TalkerStreamSources:    binary.BigEndian.Uint16(b[20:22]),
		TalkerCapabilities:     model.TalkerCapabilityFlags(binary.BigEndian.Uint16(b[22:24])),
		ListenerStreamSinks:    binary.BigEndian.Uint16(b[24:26]),
		ListenerCapabilities:   model.ListenerCapabilityFlags(binary.BigEndian.Uint16(b[26:28])),
		ControllerCapabilities: binary.BigEndian.Uint32(b[28:32]),
		AvailableIndex:         binary.BigEndian.Uint32(b[32:36]),
		AssociationID:          binary.BigEndian.Uint64(b[36:44]),
		EntityName:             readString(b[44:108]),
		VendorNameString:       binary.BigEndian.Uint16(b[108:110]),
		ModelNameString:        binary.BigEndian.Uint16(b[110:112]),
		FirmwareVersion:        readString(b[112:176]),
		GroupName:              readString(b[176:240]),
		SerialNumber:           readString(b[240:304]),
		ConfigurationsCount:    binary.BigEndian.Uint16(b[304:306]),
		CurrentConfiguration:   binary.BigEndian.Uint16(b[306:308]),
	}, nil
}

func parseConfigurationDescriptor(index uint16, b []byte) (model.ConfigurationDescriptor, error) {
	const fixedLen = 70
	if len(b) < fixedLen {
		return model.ConfigurationDescriptor{}, malformed("CONFIGURATION descriptor too short: %d bytes", len(b))
	}
	c := model.ConfigurationDescriptor{
		IndexValue:           index,
		ObjectName:           readString(b[0:64]),
		LocalizedDescription: binary.BigEndian.Uint16(b[64:66]),
	}
	numCounts := binary.BigEndian.Uint16(b[66:68])
	off := fixedLen
	for i := uint16(0); i < numCounts; i++ {
		if off+4 > len(b) {
			return model.ConfigurationDescriptor{}, malformed("CONFIGURATION descriptor_counts truncated at entry %d", i)
		}
		c.DescriptorCounts = append(c.DescriptorCounts, model.DescriptorCount{
			Type:  model.DescriptorType(binary.BigEndian.Uint16(b[off : off+2])),
			Count: binary.BigEndian.Uint16(b[off+2 : off+4]),
		})
		off += 4
	}
	return c, nil
}

// streamDescriptorFixedLen is the descriptor body length up to (and
// excluding) the variable-length stream_formats array, i.e. the
// formats_offset field's expected value minus the 4-byte descriptor_type
// + descriptor_index prefix that ParseReadDescriptorResponseHeader has
// already stripped from b (IEEE 1722.1-2013 clause 7.2.6: formats_offset
// == 132 measured from descriptor_type).
const streamDescriptorFixedLen = 128
const streamDescriptorFormatsOffset = 132

func parseStreamDescriptor(t model.DescriptorType, index uint16, b []byte) (model.StreamDescriptor, error) {
	if len(b) < streamDescriptorFixedLen {
		return model.StreamDescriptor{}, malformed("%s descriptor too short: %d bytes", t, len(b))
	}
	flagsWord := binary.BigEndian.Uint16(b[68:70])
	s := model.StreamDescriptor{
		TypeValue:            t,
		IndexValue:           index,
		ObjectName:           readString(b[0:64]),
		LocalizedDescription: binary.BigEndian.Uint16(b[64:66]),
		ClockDomainIndex:     binary.BigEndian.Uint16(b[66:68]),
		Flags:                decodeStreamFlags(flagsWord),
		CurrentFormat:        binary.BigEndian.Uint64(b[70:78]),
		BackupTalkers: [3]model.TalkerPair{
			{EntityID: model.EntityID(binary.BigEndian.Uint64(b[82:90])), UniqueID: binary.BigEndian.Uint16(b[90:92])},
			{EntityID: model.EntityID(binary.BigEndian.Uint64(b[92:100])), UniqueID: binary.BigEndian.Uint16(b[100:102])},
			{EntityID: model.EntityID(binary.BigEndian.Uint64(b[102:110])), UniqueID: binary.BigEndian.Uint16(b[110:112])},
		},
		BackedupTalker: model.TalkerPair{
			EntityID: model.EntityID(binary.BigEndian.Uint64(b[112:120])),
			UniqueID: binary.BigEndian.Uint16(b[120:122]),
		},
		AVBInterfaceIndex: binary.BigEndian.Uint16(b[122:124]),
		BufferLength:      binary.BigEndian.Uint32(b[124:128]),
	}
	s.CurrentFormatName = streamFormatName(s.CurrentFormat)

	// formats_offset (rest-relative 78:80, global 82:84; its encoded value is
	// measured from descriptor_type, i.e. streamDescriptorFixedLen+4) is
	// validated unconditionally per spec section 9's open question: a
	// non-132 offset is a malformed descriptor, not merely ignored when
	// number_of_formats happens to be zero.
	formatsOffset := binary.BigEndian.Uint16(b[78:80])
	if formatsOffset != streamDescriptorFormatsOffset {
		return model.StreamDescriptor{}, malformed("%s formats_offset must be %d, got %d", t, streamDescriptorFormatsOffset, formatsOffset)
	}

	numFormats := binary.BigEndian.Uint16(b[80:82])
	if numFormats > 0 {
		need := streamDescriptorFixedLen + int(numFormats)*8
		if len(b) < need {
			return model.StreamDescriptor{}, malformed("%s stream_formats truncated: need %d have %d", t, need, len(b))
		}
		s.StreamFormats = make([]uint64, numFormats)
		for i := range s.StreamFormats {
			off := streamDescriptorFixedLen + i*8
			s.StreamFormats[i] = binary.BigEndian.Uint64(b[off : off+8])
		}
	}
	return s, nil
}

func decodeStreamFlags(w uint16) model.StreamFlags {
	return model.StreamFlags{
		ClockSyncSource:          w&(1<<0) != 0,
		ClassA:                   w&(1<<1) != 0,
		ClassB:                   w&(1<<2) != 0,
		SupportsEncrypted:        w&(1<<3) != 0,
		PrimaryBackupSupported:   w&(1<<4) != 0,
		PrimaryBackupValid:       w&(1<<5) != 0,
		SecondaryBackupSupported: w&(1<<6) != 0,
		SecondaryBackupValid:     w&(1<<7) != 0,
		TertiaryBackupSupported:  w&(1<<8) != 0,
		TertiaryBackupValid:      w&(1<<9) != 0,
	}
}

const audioUnitFixedLen = 84

func parseAudioUnitDescriptor(index uint16, b []byte) (model.AudioUnitDescriptor, error) {
	if len(b) < audioUnitFixedLen {
		return model.AudioUnitDescriptor{}, malformed("AUDIO_UNIT descriptor too short: %d bytes", len(b))
	}
	a := model.AudioUnitDescriptor{
		IndexValue:                index,
		ObjectName:                readString(b[0:64]),
		LocalizedDescription:      binary.BigEndian.Uint16(b[64:66]),
		ClockDomainIndex:          binary.BigEndian.Uint16(b[66:68]),
		NumberOfStreamInputPorts:  binary.BigEndian.Uint16(b[68:70]),
		BaseStreamInputPort:       binary.BigEndian.Uint16(b[70:72]),
		NumberOfStreamOutputPorts: binary.BigEndian.Uint16(b[72:74]),
		BaseStreamOutputPort:      binary.BigEndian.Uint16(b[74:76]),
		CurrentSamplingRate:       binary.BigEndian.Uint32(b[76:80]),
	}
	numRates := binary.BigEndian.Uint16(b[80:82])
	off := audioUnitFixedLen
	for i := uint16(0); i < numRates; i++ {
		if off+4 > len(b) {
			return model.AudioUnitDescriptor{}, malformed("AUDIO_UNIT sampling_rates truncated at entry %d", i)
		}
		a.SamplingRates = append(a.SamplingRates, binary.BigEndian.Uint32(b[off:off+4]))
		off += 4
	}
	return a, nil
}

const streamPortDescriptorLen = 12

func parseStreamPortDescriptor(t model.DescriptorType, index uint16, b []byte) (model.StreamPortDescriptor, error) {
	if len(b) < streamPortDescriptorLen {
		return model.StreamPortDescriptor{}, malformed("%s descriptor too short: %d bytes", t, len(b))
	}
	return model.StreamPortDescriptor{
		TypeValue:        t,
		IndexValue:       index,
		ClockDomainIndex: binary.BigEndian.Uint16(b[0:2]),
		NumberOfClusters: binary.BigEndian.Uint16(b[4:6]),
		BaseCluster:      binary.BigEndian.Uint16(b[6:8]),
		NumberOfMaps:     binary.BigEndian.Uint16(b[8:10]),
		BaseMap:          binary.BigEndian.Uint16(b[10:12]),
	}, nil
}

const avbInterfaceDescriptorLen = 94

func parseAVBInterfaceDescriptor(index uint16, b []byte) (model.AVBInterfaceDescriptor, error) {
	if len(b) < avbInterfaceDescriptorLen {
		return model.AVBInterfaceDescriptor{}, malformed("AVB_INTERFACE descriptor too short: %d bytes", len(b))
	}
	var mac [6]byte
	copy(mac[:], b[64:70])
	return model.AVBInterfaceDescriptor{
		IndexValue:              index,
		ObjectName:              readString(b[0:64]),
		MACAddress:              model.MACFromBytes(mac),
		InterfaceFlags:          binary.BigEndian.Uint16(b[70:72]),
		ClockIdentity:           binary.BigEndian.Uint64(b[72:80]),
		Priority1:               b[80],
		ClockClass:              b[81],
		OffsetScaledLogVariance: binary.BigEndian.Uint16(b[82:84]),
		ClockAccuracy:           b[84],
		Priority2:               b[85],
		DomainNumber:            b[86],
		LogSyncInterval:         int8(b[87]),
		LogAnnounceInterval:     int8(b[88]),
		LogPDelayInterval:       int8(b[89]),
		PortNumber:              binary.BigEndian.Uint16(b[90:92]),
	}, nil
}

const clockSourceDescriptorLen = 80

func parseClockSourceDescriptor(index uint16, b []byte) (model.ClockSourceDescriptor, error) {
	if len(b) < clockSourceDescriptorLen {
		return model.ClockSourceDescriptor{}, malformed("CLOCK_SOURCE descriptor too short: %d bytes", len(b))
	}
	return model.ClockSourceDescriptor{
		IndexValue:               index,
		ObjectName:               readString(b[0:64]),
		ClockSourceFlags:         binary.BigEndian.Uint16(b[64:66]),
		ClockSourceType:          binary.BigEndian.Uint16(b[66:68]),
		ClockSourceIdentifier:    binary.BigEndian.Uint64(b[68:76]),
		ClockSourceLocationType:  model.DescriptorType(binary.BigEndian.Uint16(b[76:78])),
		ClockSourceLocationIndex: binary.BigEndian.Uint16(b[78:80]),
	}, nil
}

const localeDescriptorLen = 68

func parseLocaleDescriptor(index uint16, b []byte) (model.LocaleDescriptor, error) {
	if len(b) < localeDescriptorLen {
		return model.LocaleDescriptor{}, malformed("LOCALE descriptor too short: %d bytes", len(b))
	}
	return model.LocaleDescriptor{
		IndexValue:                index,
		LocaleIdentifier:          readString(b[0:64]),
		NumberOfStringDescriptors: binary.BigEndian.Uint16(b[64:66]),
		BaseStringDescriptorIndex: binary.BigEndian.Uint16(b[66:68]),
	}, nil
}

const stringsDescriptorLen = 448 // 7 * 64

func parseStringsDescriptor(index uint16, b []byte) (model.StringsDescriptor, error) {
	if len(b) < stringsDescriptorLen {
		return model.StringsDescriptor{}, malformed("STRINGS descriptor too short: %d bytes", len(b))
	}
	s := model.StringsDescriptor{IndexValue: index}
	for i := range s.Strings {
		off := i * 64
		s.Strings[i] = readString(b[off : off+64])
	}
	return s, nil
}

// streamFormatName renders a raw IEEE 1722 stream_format code to the
// symbolic name a controller UI would show (spec section 4.2:
// "current_format ..., also rendered to a symbolic name"). The top byte
// carries the AVTP subtype the format belongs to; only the handful of
// subtypes AVDECC entities commonly advertise are named, everything else
// falls back to a hex label rather than guessing.
func streamFormatName(format uint64) string {
	subtype := byte(format >> 56)
	switch subtype {
	case 0x00:
		return "IEC_61883_IIDC"
	case 0x02:
		return "AAF"
	case 0x03:
		return "CRF"
	case 0x04:
		return "TSCF"
	case 0x6E:
		return "EXPERIMENTAL"
	default:
		return fmt.Sprintf("UNKNOWN_FORMAT(0x%016X)", format)
	}
}
