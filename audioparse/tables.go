package audioparse

// MPEG audio bit rates in kbit/s indexed by [lsf][layer-1][bitrate_index]
// (ISO 11172-3 / ISO 13818-3). Index 0 is free format.
var mpegBitRates = [2][3][15]int{
	{
		{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448},
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384},
		{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320},
	},
	{
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
	},
}

// MPEG-1 sampling frequencies; MPEG-2 and 2.5 are derived by shifting.
var mpegSampleRates = [3]int{44100, 48000, 32000}

const mpegModeMono = 3

// AC-3 nominal bit rates in kbit/s indexed by frmsizecod>>1 (ATSC A/52
// table 5.18). Codes past 640 kbit/s are reserved.
var ac3BitRates = [32]int{
	32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384, 448,
	512, 576, 640,
}

// ac3Half maps the low four bits of bsid to the sample-rate shift used by
// reduced-rate (bsid 9-11) streams.
var ac3Half = [16]uint{0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 0, 0, 0, 0}

// AC-3 sampling frequencies in units of 100 Hz indexed by fscod.
var ac3SampleRates = [4]int{480, 441, 320, 0}

// ac3Channels is the full-bandwidth channel count per acmod.
var ac3Channels = [8]int{2, 1, 2, 3, 3, 4, 4, 5}

// ac3LFEMask locates the lfeon bit in the seventh header byte; its
// position depends on how many mix-level fields precede it for each acmod.
var ac3LFEMask = [8]byte{0x10, 0x10, 0x04, 0x04, 0x04, 0x01, 0x04, 0x01}

const (
	ac3LFEFlag   = 16
	ac3DolbyFlag = 10
)

const ac3SamplesPerFrame = 1536

// AAC sampling frequency index table (ISO 14496-3). Indices 13-15 are
// reserved.
var aacSampleRates = [16]int{
	96000, 88200, 64000, 48000, 44100, 32000, 24000, 22050,
	16000, 12000, 11025, 8000, 7350,
}

// aacChannels maps channel_configuration to a channel count. Configuration
// 0 defers to an in-band program config element and is not supported.
var aacChannels = [8]int{0, 1, 2, 3, 4, 5, 6, 8}

const aacSamplesPerBlock = 1024
